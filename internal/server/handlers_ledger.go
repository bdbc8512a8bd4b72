package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// submitCropData appends the payload to the shared ledger topic and mirrors
// the submission locally. One topic serves all users for the life of the
// process.
func (a *App) submitCropData(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload ledgerSubmitRequest
	if !mustJSON(c, &payload) {
		return
	}
	data := strings.TrimSpace(payload.CropData)
	if data == "" {
		writeError(c, http.StatusBadRequest, "No crop data provided")
		return
	}

	topicID, err := a.ensureLedgerTopic(c.Request.Context())
	if err != nil {
		a.log.Error("ledger topic creation failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Blockchain error: "+err.Error())
		return
	}
	if err := a.ledger.Submit(c.Request.Context(), topicID, []byte(data)); err != nil {
		a.log.Error("ledger submit failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Blockchain error: "+err.Error())
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO blockchain_records (id, email, data, topic_id, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		uuid.NewString(),
		email,
		data,
		topicID,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save blockchain record")
		return
	}
	writeSuccess(c, "Data submitted to blockchain")
}
