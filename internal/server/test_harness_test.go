package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"agrisense/backend/internal/config"
	"agrisense/backend/internal/db"
)

var (
	testPool              *pgxpool.Pool
	baseTestConfig        config.Config
	integrationDBReady    bool
	integrationSkipReason string
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	baseTestConfig = newTestConfig()

	testDatabaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if testDatabaseURL == "" {
		integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not set"
		fmt.Fprintln(os.Stderr, integrationSkipReason)
		os.Exit(m.Run())
	}
	testDatabaseURL = withSimpleProtocol(testDatabaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, testDatabaseURL)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration test setup failed: cannot connect TEST_DATABASE_URL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = db.EnsureSchema(ctx, pool)
	cancel()
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "integration test setup failed: schema setup failed: %v\n", err)
		os.Exit(1)
	}

	testPool = pool
	integrationDBReady = true

	exitCode := m.Run()
	testPool.Close()
	os.Exit(exitCode)
}

func withSimpleProtocol(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	queries := parsed.Query()
	queries.Set("default_query_exec_mode", "simple_protocol")
	parsed.RawQuery = queries.Encode()
	return parsed.String()
}

func newTestConfig() config.Config {
	cfg := config.Config{
		AppEnv:          "test",
		AppName:         "AgriSense API Test",
		AppPort:         "0",
		DatabaseURL:     "test",
		JWTSecret:       "test-secret-1234567890",
		JWTAlgorithm:    "HS256",
		SessionTTLHours: 24,
		CORSAllowOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:3000",
		},
	}

	if v := strings.TrimSpace(os.Getenv("TEST_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	return cfg
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if !integrationDBReady {
		if integrationSkipReason == "" {
			integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not configured"
		}
		t.Skip(integrationSkipReason)
	}
}

// testCollaborators bundles the mocks wired into a test app so assertions can
// reach inside them after a request.
type testCollaborators struct {
	AI      *MockAIClient
	Weather *MockWeatherClient
	Video   *MockVideoSearcher
	Mail    *MockMailer
	Ledger  *MockLedgerClient
}

func newTestApp(t *testing.T) (*App, *testCollaborators) {
	t.Helper()
	requireIntegration(t)

	mocks := &testCollaborators{
		AI: &MockAIClient{},
		Weather: &MockWeatherClient{
			ForecastResult: Forecast{
				Location: "Bengaluru",
				Days: []ForecastDay{{
					Date:         "2025-03-25",
					Temperature:  27.4,
					Humidity:     58,
					WindSpeed:    3.1,
					Description:  "scattered clouds",
					Icon:         "https://openweathermap.org/img/wn/03d@2x.png",
					ChanceOfRain: 20,
				}},
			},
			CurrentResult: CurrentWeather{
				Temperature: 27.4,
				Humidity:    58,
				Description: "scattered clouds",
			},
		},
		Video:  &MockVideoSearcher{Result: "https://www.youtube.com/watch?v=test123"},
		Mail:   &MockMailer{},
		Ledger: &MockLedgerClient{},
	}

	app := &App{
		cfg:     baseTestConfig,
		db:      testPool,
		log:     zap.NewNop(),
		ai:      mocks.AI,
		weather: mocks.Weather,
		video:   mocks.Video,
		mail:    mocks.Mail,
		ledger:  mocks.Ledger,
		now:     time.Now,
	}
	return app, mocks
}

func newTestRouter(t *testing.T) (*gin.Engine, *testCollaborators) {
	t.Helper()
	app, mocks := newTestApp(t)
	return app.Router(), mocks
}

func resetDatabase(t *testing.T) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`TRUNCATE TABLE
			blockchain_records,
			post_comments,
			posts,
			irrigation_plans,
			crop_predictions,
			crop_growth_records,
			comments,
			ratings,
			sessions,
			users
		RESTART IDENTITY CASCADE`,
	)
	if err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

func seedUser(t *testing.T, email, password string) string {
	t.Helper()
	requireIntegration(t)
	if strings.TrimSpace(email) == "" {
		email = "user-" + testID()[:8] + "@example.com"
	}
	if password == "" {
		password = "secret-pass"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = testPool.Exec(
		ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES ($1, $2, $3, NOW())`,
		"user-"+email,
		email,
		string(hashed),
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return email
}

// seedSession writes a server-side session row directly so authenticated
// requests can run without going through /login.
func seedSession(t *testing.T, email string, expiry time.Time) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`INSERT INTO sessions (email, session_token, expiry)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET session_token = $2, expiry = $3`,
		email,
		testID(),
		expiry.UTC(),
	)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

// loginFixture seeds a user with a live session and returns the email and a
// matching bearer token.
func loginFixture(t *testing.T, app *App) (string, string) {
	t.Helper()
	email := seedUser(t, "", "")
	seedSession(t, email, time.Now().UTC().Add(1*time.Hour))
	token, err := app.issueToken(email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return email, token
}

func seedPost(t *testing.T, email, content string) string {
	t.Helper()
	requireIntegration(t)
	postID := testID()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`INSERT INTO posts (id, email, content, likes, dislikes, created_at)
		 VALUES ($1, $2, $3, 0, 0, NOW())`,
		postID,
		email,
		content,
	)
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return postID
}

func seedGrowthRecord(t *testing.T, email string, photo []byte, createdAt time.Time) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`INSERT INTO crop_growth_records (id, email, photo_data, activity, growth_report, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		testID(),
		email,
		photo,
		"watering",
		"seed report",
		createdAt.UTC(),
	)
	if err != nil {
		t.Fatalf("seed growth record: %v", err)
	}
}

func performRequest(
	t *testing.T,
	router http.Handler,
	method, targetPath, token string,
	body any,
	headers map[string]string,
) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// performMultipart posts a multipart form with optional file field.
func performMultipart(
	t *testing.T,
	router http.Handler,
	targetPath, token string,
	fields map[string]string,
	fileField, fileName string,
	fileData []byte,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write form field: %v", err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, targetPath, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func decodeJSONList(t *testing.T, rec *httptest.ResponseRecorder) []any {
	t.Helper()
	var payload []any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON list: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSONMap(t, rec)
	message, _ := body["message"].(string)
	return message
}

func countRows(t *testing.T, table string) int {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		t.Fatalf("count rows in %s: %v", table, err)
	}
	return count
}

func testID() string {
	return uuid.NewString()
}
