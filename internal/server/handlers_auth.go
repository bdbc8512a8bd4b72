package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (a *App) register(c *gin.Context) {
	var payload registerRequest
	if !mustJSON(c, &payload) {
		return
	}
	name := strings.TrimSpace(payload.Name)
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if name == "" || email == "" || payload.Password == "" {
		writeError(c, http.StatusBadRequest, "Name, email, and password are required")
		return
	}

	var exists bool
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Registration failed")
		return
	}
	if exists {
		writeError(c, http.StatusBadRequest, "Email already registered. Please log in.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO users (name, email, password_hash, created_at) VALUES ($1, $2, $3, NOW())`,
		name,
		email,
		string(hashed),
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeSuccess(c, "Registration successful! Please log in.")
}

func (a *App) login(c *gin.Context) {
	var payload loginRequest
	if !mustJSON(c, &payload) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" || payload.Password == "" {
		writeError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	var passwordHash string
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT password_hash FROM users WHERE email = $1`,
		email,
	).Scan(&passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusUnauthorized, "Invalid email or password. Try again!")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Login failed")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(payload.Password)) != nil {
		writeError(c, http.StatusUnauthorized, "Invalid email or password. Try again!")
		return
	}

	if _, err := a.createSession(c.Request.Context(), email); err != nil {
		writeError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	token, err := a.issueToken(email)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	a.log.Info("login", zap.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Login successful!",
		"token":   token,
	})
}

// issueToken signs the client-held identity claim. Its lifetime matches the
// server session so neither half outlives the other.
func (a *App) issueToken(email string) (string, error) {
	now := a.now().UTC()
	claims := jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(a.cfg.SessionTTLHours) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

func (a *App) logout(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := a.invalidateSession(c.Request.Context(), email); err != nil {
		writeError(c, http.StatusInternalServerError, "Logout failed")
		return
	}
	writeSuccess(c, "You have been logged out.")
}
