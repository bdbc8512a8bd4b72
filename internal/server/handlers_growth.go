package server

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// listGrowthRecords returns the caller's crop growth history, newest first,
// with photos inlined as base64.
func (a *App) listGrowthRecords(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT photo_data, activity, growth_report, created_at
		 FROM crop_growth_records WHERE email = $1 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load growth records")
		return
	}
	defer rows.Close()

	records := make([]gin.H, 0)
	for rows.Next() {
		var photo []byte
		var activity, report string
		var createdAt time.Time
		if err := rows.Scan(&photo, &activity, &report, &createdAt); err != nil {
			writeError(c, http.StatusInternalServerError, "Failed to load growth records")
			return
		}
		entry := gin.H{
			"date":          createdAt.UTC().Format("2006-01-02"),
			"activity":      activity,
			"growth_report": report,
			"photo":         nil,
		}
		if len(photo) > 0 {
			entry["photo"] = base64.StdEncoding.EncodeToString(photo)
		} else {
			entry["activity"] = "N/A"
			entry["growth_report"] = "N/A"
		}
		records = append(records, entry)
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// dailyCropAnalysis stores an uploaded crop photo with its AI growth report
// and mails the report to the user. The email is fire-and-forget; a failed
// send does not undo the committed record.
func (a *App) dailyCropAnalysis(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	file, err := c.FormFile("cropPhoto")
	if err != nil {
		writeError(c, http.StatusBadRequest, "No photo uploaded")
		return
	}
	if file.Filename == "" {
		writeError(c, http.StatusBadRequest, "No photo selected")
		return
	}
	activity := c.PostForm("activity")
	if activity == "" {
		activity = "No activity recorded"
	}

	opened, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "No photo uploaded")
		return
	}
	defer opened.Close()
	photoData, err := io.ReadAll(opened)
	if err != nil {
		writeError(c, http.StatusBadRequest, "No photo uploaded")
		return
	}

	answer, err := a.ai.Generate(c.Request.Context(), GenerateRequest{
		Prompt: "Analyze this crop image and provide a growth report including current growth stage, " +
			"health status (healthy, stressed, or poor), and any recommendations. Respond in English.",
		ImageJPEG: photoData,
	})
	if err != nil {
		a.log.Error("crop growth analysis failed", zap.Error(err))
		answer = "No analysis available."
	}
	growthReport := sanitizeText(answer)

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO crop_growth_records (id, email, photo_data, activity, growth_report, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.NewString(),
		email,
		photoData,
		activity,
		growthReport,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save growth record")
		return
	}

	var name string
	err = a.db.QueryRow(
		c.Request.Context(),
		`SELECT name FROM users WHERE email = $1`,
		email,
	).Scan(&name)
	if err == nil {
		subject := "Crop Growth Report - " + a.now().UTC().Format("2006-01-02")
		body := "Dear " + name + ",\n\nHere is your daily crop growth report:\n" + growthReport +
			"\n\nActivity: " + activity + "\n\nBest,\nAgriSense Team"
		a.sendMail(email, subject, body)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		a.log.Error("report email lookup failed", zap.Error(err))
	}

	writeSuccess(c, "Record saved and report sent")
}

// CheckDailyReminders mails every user whose latest crop photo is not from
// today. Invoked once at startup; all sends are best effort.
func (a *App) CheckDailyReminders(ctx context.Context) error {
	today := a.now().UTC().Format("2006-01-02")

	rows, err := a.db.Query(
		ctx,
		`SELECT u.email, MAX(r.created_at)
		 FROM users u LEFT JOIN crop_growth_records r ON r.email = u.email
		 GROUP BY u.email`,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	type reminderTarget struct {
		email  string
		latest *time.Time
	}
	targets := make([]reminderTarget, 0)
	for rows.Next() {
		var item reminderTarget
		if err := rows.Scan(&item.email, &item.latest); err != nil {
			return err
		}
		targets = append(targets, item)
	}

	for _, target := range targets {
		if target.latest != nil && target.latest.UTC().Format("2006-01-02") == today {
			continue
		}
		a.sendMail(
			target.email,
			"Crop Monitoring Reminder",
			"Reminder: No photo uploaded today. Please upload your crop photo.",
		)
	}
	return nil
}
