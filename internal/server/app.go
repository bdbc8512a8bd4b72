package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"agrisense/backend/internal/config"
)

type App struct {
	cfg     config.Config
	db      *pgxpool.Pool
	log     *zap.Logger
	ai      AIClient
	weather WeatherClient
	video   VideoSearcher
	mail    Mailer
	ledger  LedgerClient
	topic   ledgerTopic

	// now is the clock behind session expiry checks; tests swap it out.
	now func() time.Time
}

func New(cfg config.Config, db *pgxpool.Pool, logger *zap.Logger) *App {
	return &App{
		cfg:     cfg,
		db:      db,
		log:     logger,
		ai:      NewGeminiClient(cfg),
		weather: NewOpenWeatherClient(cfg),
		video:   NewYouTubeSearcher(cfg.GoogleAPIKey),
		mail:    NewSMTPMailer(cfg),
		ledger:  NewHederaRESTClient(cfg),
		now:     time.Now,
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(a.log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)
	router.POST("/register", a.register)
	router.POST("/login", a.login)
	router.GET("/comments", a.listSiteComments)

	authed := router.Group("")
	authed.Use(a.authMiddleware())

	authed.POST("/logout", a.logout)
	authed.GET("/feedback", a.recentFeedback)
	authed.POST("/submit_rating", a.submitRating)
	authed.POST("/submit_comment", a.submitComment)
	authed.POST("/chatbot", a.chatbot)
	authed.POST("/upload", a.diagnoseDisease)
	authed.POST("/weather", a.weatherForecast)
	authed.GET("/cropgrowthanalysis", a.listGrowthRecords)
	authed.POST("/daily-crop-analysis", a.dailyCropAnalysis)
	authed.POST("/analyze_crop_growth", a.analyzeCropGrowth)
	authed.POST("/irrigation_plan", a.createIrrigationPlan)
	authed.POST("/post", a.createPost)
	authed.GET("/posts", a.listPosts)
	authed.POST("/vote", a.votePost)
	authed.POST("/comment", a.commentOnPost)
	authed.POST("/delete_post", a.deletePost)
	authed.POST("/submit_crop_data", a.submitCropData)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "agrisense-api",
	})
}

// requestLogger logs one line per request: path, status, latency, method.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", c.Request.Method),
		)
	}
}

// authMiddleware resolves the client-held identity claim (JWT subject) and
// then checks the server-side session record. Both must agree: a forged or
// stale token does not outlive a server-invalidated session.
func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Please log in to access this page.")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Please log in to access this page.")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Your session has expired. Please log in again.")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Your session has expired. Please log in again.")
			return
		}
		email, _ := claims["sub"].(string)
		email = strings.TrimSpace(email)
		if email == "" {
			writeError(c, http.StatusUnauthorized, "Your session has expired. Please log in again.")
			return
		}

		valid, err := a.validateSession(c.Request.Context(), email)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "Session lookup failed")
			return
		}
		if !valid {
			writeError(c, http.StatusUnauthorized, "Your session has expired. Please log in again.")
			return
		}

		c.Set("authEmail", email)
		c.Next()
	}
}

func authEmailFromContext(c *gin.Context) (string, bool) {
	raw, ok := c.Get("authEmail")
	if !ok {
		return "", false
	}
	email, ok := raw.(string)
	return email, ok && email != ""
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": message})
}

func writeSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
