package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createPost runs the AI fact-check before anything is stored: posts judged
// incorrect or off-topic are rejected and the author is notified by mail.
func (a *App) createPost(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload forumPostRequest
	if !mustJSON(c, &payload) {
		return
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		writeError(c, http.StatusBadRequest, "No content provided")
		return
	}

	answer, err := a.ai.Generate(c.Request.Context(), GenerateRequest{
		Prompt: "Is this statement related to agriculture and factually correct? " +
			"Consider crop water requirements (e.g., wheat needs 20-30 cm per season is correct). " +
			"Statement: " + content + ". Respond with 'true' or 'false'.",
	})
	if err != nil {
		a.log.Error("fact-check oracle call failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if strings.ToLower(strings.TrimSpace(answer)) != "true" {
		a.sendMail(
			email,
			"Incorrect or Non-Agriculture Information in Forum Post",
			"Dear user,\n\nThe post you submitted ('"+content+"') was flagged as either incorrect or not "+
				"related to agriculture by our AI fact-checking system. Please review and resubmit accurate "+
				"agriculture-related information.\n\nBest,\nAgriSense Team",
		)
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": "Post rejected due to incorrect or non-agriculture content. Notification sent.",
		})
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO posts (id, email, content, likes, dislikes, created_at)
		 VALUES ($1, $2, $3, 0, 0, NOW())`,
		uuid.NewString(),
		email,
		content,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save post")
		return
	}
	writeSuccess(c, "Post saved")
}

func (a *App) listPosts(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))

	query := `SELECT id, email, content, likes, dislikes, created_at
	          FROM posts ORDER BY created_at DESC`
	args := []any{}
	if search != "" {
		query = `SELECT id, email, content, likes, dislikes, created_at
		         FROM posts WHERE content ILIKE '%' || $1 || '%' ORDER BY created_at DESC`
		args = append(args, search)
	}

	rows, err := a.db.Query(c.Request.Context(), query, args...)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load posts")
		return
	}
	defer rows.Close()

	type postRow struct {
		id        string
		email     string
		content   string
		likes     int
		dislikes  int
		createdAt time.Time
	}
	loaded := make([]postRow, 0)
	postIDs := make([]string, 0)
	for rows.Next() {
		var item postRow
		if err := rows.Scan(&item.id, &item.email, &item.content, &item.likes, &item.dislikes, &item.createdAt); err != nil {
			writeError(c, http.StatusInternalServerError, "Failed to load posts")
			return
		}
		loaded = append(loaded, item)
		postIDs = append(postIDs, item.id)
	}

	commentsByPost := make(map[string][]gin.H, len(postIDs))
	if len(postIDs) > 0 {
		commentRows, err := a.db.Query(
			c.Request.Context(),
			`SELECT post_id, email, content, created_at FROM post_comments
			 WHERE post_id = ANY($1) ORDER BY created_at`,
			postIDs,
		)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "Failed to load posts")
			return
		}
		defer commentRows.Close()
		for commentRows.Next() {
			var postID, commentEmail, commentContent string
			var commentedAt time.Time
			if err := commentRows.Scan(&postID, &commentEmail, &commentContent, &commentedAt); err != nil {
				writeError(c, http.StatusInternalServerError, "Failed to load posts")
				return
			}
			commentsByPost[postID] = append(commentsByPost[postID], gin.H{
				"content":   commentContent,
				"email":     commentEmail,
				"timestamp": commentedAt.UTC(),
			})
		}
	}

	posts := make([]gin.H, 0, len(loaded))
	for _, item := range loaded {
		comments := commentsByPost[item.id]
		if comments == nil {
			comments = []gin.H{}
		}
		posts = append(posts, gin.H{
			"_id":       item.id,
			"content":   item.content,
			"likes":     item.likes,
			"dislikes":  item.dislikes,
			"timestamp": item.createdAt.UTC(),
			"email":     item.email,
			"comments":  comments,
		})
	}
	c.JSON(http.StatusOK, posts)
}

// votePost atomically bumps one of the monotonically increasing counters.
func (a *App) votePost(c *gin.Context) {
	if _, ok := authEmailFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload voteRequest
	if !mustJSON(c, &payload) {
		return
	}
	postID := strings.TrimSpace(payload.PostID)
	if postID == "" || (payload.Action != "like" && payload.Action != "dislike") {
		writeError(c, http.StatusBadRequest, "Invalid vote data")
		return
	}
	if _, err := uuid.Parse(postID); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid vote data")
		return
	}

	query := `UPDATE posts SET likes = likes + 1 WHERE id = $1`
	if payload.Action == "dislike" {
		query = `UPDATE posts SET dislikes = dislikes + 1 WHERE id = $1`
	}
	tag, err := a.db.Exec(c.Request.Context(), query, postID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to update vote")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Post not found")
		return
	}
	writeSuccess(c, "Vote updated")
}

func (a *App) commentOnPost(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload postCommentRequest
	if !mustJSON(c, &payload) {
		return
	}
	postID := strings.TrimSpace(payload.PostID)
	content := strings.TrimSpace(payload.Content)
	if postID == "" || content == "" {
		writeError(c, http.StatusBadRequest, "Post ID and content are required")
		return
	}
	if _, err := uuid.Parse(postID); err != nil {
		writeError(c, http.StatusBadRequest, "Post ID and content are required")
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO post_comments (id, post_id, email, content, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		uuid.NewString(),
		postID,
		email,
		content,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to add comment")
		return
	}
	writeSuccess(c, "Comment added")
}

// deletePost removes a post only for its owner. Missing post and foreign
// post answer identically so ownership is not probeable.
func (a *App) deletePost(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload deletePostRequest
	if !mustJSON(c, &payload) {
		return
	}
	postID := strings.TrimSpace(payload.PostID)
	if postID == "" {
		writeError(c, http.StatusBadRequest, "Post ID is required")
		return
	}
	if _, err := uuid.Parse(postID); err != nil {
		writeError(c, http.StatusBadRequest, "Post ID is required")
		return
	}

	tag, err := a.db.Exec(
		c.Request.Context(),
		`DELETE FROM posts WHERE id = $1 AND email = $2`,
		postID,
		email,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to delete post")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Post not found or unauthorized")
		return
	}
	writeSuccess(c, "Post deleted successfully")
}
