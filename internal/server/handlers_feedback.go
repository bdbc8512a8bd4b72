package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (a *App) submitRating(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload ratingRequest
	if !mustJSON(c, &payload) {
		return
	}
	if payload.Rating == nil || *payload.Rating < 1 || *payload.Rating > 5 {
		writeError(c, http.StatusBadRequest, "Invalid rating")
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO ratings (id, email, rating, created_at) VALUES ($1, $2, $3, NOW())`,
		uuid.NewString(),
		email,
		*payload.Rating,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save rating")
		return
	}
	writeSuccess(c, "Rating submitted successfully")
}

func (a *App) submitComment(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload commentRequest
	if !mustJSON(c, &payload) {
		return
	}
	if payload.Comment == "" || len(payload.Comment) > 500 {
		writeError(c, http.StatusBadRequest, "Invalid comment")
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO comments (id, email, comment, created_at) VALUES ($1, $2, $3, NOW())`,
		uuid.NewString(),
		email,
		payload.Comment,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save comment")
		return
	}
	writeSuccess(c, "Comment submitted successfully")
}

// recentFeedback joins the three newest site comments with each author's
// latest star rating.
func (a *App) recentFeedback(c *gin.Context) {
	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT email, comment, created_at FROM comments ORDER BY created_at DESC LIMIT 3`,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load feedback")
		return
	}
	defer rows.Close()

	type feedbackRow struct {
		email     string
		comment   string
		createdAt time.Time
	}
	recent := make([]feedbackRow, 0, 3)
	for rows.Next() {
		var item feedbackRow
		if err := rows.Scan(&item.email, &item.comment, &item.createdAt); err != nil {
			writeError(c, http.StatusInternalServerError, "Failed to load feedback")
			return
		}
		recent = append(recent, item)
	}

	feedback := make([]gin.H, 0, len(recent))
	for _, item := range recent {
		var rating *int
		var latest int
		err := a.db.QueryRow(
			c.Request.Context(),
			`SELECT rating FROM ratings WHERE email = $1 ORDER BY created_at DESC LIMIT 1`,
			item.email,
		).Scan(&latest)
		if err == nil {
			rating = &latest
		} else if !errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusInternalServerError, "Failed to load feedback")
			return
		}
		feedback = append(feedback, gin.H{
			"email":     item.email,
			"comment":   item.comment,
			"rating":    rating,
			"timestamp": item.createdAt.UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"feedback": feedback})
}

// listSiteComments looks up site comments for a post identifier. Kept on the
// open surface for the public landing page.
func (a *App) listSiteComments(c *gin.Context) {
	postID := strings.TrimSpace(c.Query("post_id"))
	if postID == "" {
		writeError(c, http.StatusBadRequest, "Post ID required")
		return
	}
	if _, err := uuid.Parse(postID); err != nil {
		writeError(c, http.StatusBadRequest, "Post ID required")
		return
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT id, email, content, created_at FROM post_comments
		 WHERE post_id = $1 ORDER BY created_at DESC`,
		postID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load comments")
		return
	}
	defer rows.Close()

	comments := make([]gin.H, 0)
	for rows.Next() {
		var id, email, content string
		var createdAt time.Time
		if err := rows.Scan(&id, &email, &content, &createdAt); err != nil {
			writeError(c, http.StatusInternalServerError, "Failed to load comments")
			return
		}
		comments = append(comments, gin.H{
			"_id":       id,
			"email":     email,
			"content":   content,
			"timestamp": createdAt.UTC(),
		})
	}
	c.JSON(http.StatusOK, comments)
}
