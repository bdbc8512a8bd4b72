package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"agrisense/backend/internal/config"
)

// LedgerClient is the narrow interface over the distributed-ledger service:
// create an append-only topic once, then submit raw messages to it.
// Delivery is best effort; nothing here guarantees exactly-once.
type LedgerClient interface {
	CreateTopic(ctx context.Context) (string, error)
	Submit(ctx context.Context, topicID string, message []byte) error
}

// ledgerTopic holds the process-wide topic handle. The mutex makes topic
// creation single-writer within this process; two instances of the service
// can still race to create separate topics.
type ledgerTopic struct {
	mu sync.Mutex
	id string
}

// ensureLedgerTopic returns the shared topic, creating it on first use.
func (a *App) ensureLedgerTopic(ctx context.Context) (string, error) {
	a.topic.mu.Lock()
	defer a.topic.mu.Unlock()
	if a.topic.id != "" {
		return a.topic.id, nil
	}
	id, err := a.ledger.CreateTopic(ctx)
	if err != nil {
		return "", err
	}
	a.topic.id = id
	return id, nil
}

// HederaRESTClient talks to a Hedera consensus REST bridge. The operator
// account and key are forwarded as headers; the bridge signs transactions.
type HederaRESTClient struct {
	baseURL    string
	accountID  string
	privateKey string
	httpClient *http.Client
}

func NewHederaRESTClient(cfg config.Config) *HederaRESTClient {
	return &HederaRESTClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.LedgerBaseURL), "/"),
		accountID:  strings.TrimSpace(cfg.LedgerAccountID),
		privateKey: strings.TrimSpace(cfg.LedgerPrivateKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HederaRESTClient) configured() error {
	if c.baseURL == "" {
		return errors.New("LEDGER_BASE_URL is not configured")
	}
	if c.accountID == "" || c.privateKey == "" {
		return errors.New("Missing Hedera credentials")
	}
	return nil
}

func (c *HederaRESTClient) CreateTopic(ctx context.Context) (string, error) {
	if err := c.configured(); err != nil {
		return "", err
	}
	body, err := c.post(ctx, "/topics", map[string]any{})
	if err != nil {
		return "", err
	}
	topicID := strings.TrimSpace(toString(parseJSONStringMap(body)["topic_id"]))
	if topicID == "" {
		return "", errors.New("ledger response missing topic_id")
	}
	return topicID, nil
}

func (c *HederaRESTClient) Submit(ctx context.Context, topicID string, message []byte) error {
	if err := c.configured(); err != nil {
		return err
	}
	_, err := c.post(ctx, "/topics/"+topicID+"/messages", map[string]any{
		"message": base64.StdEncoding.EncodeToString(message),
	})
	return err
}

func (c *HederaRESTClient) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyRaw))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Operator-Account", c.accountID)
	request.Header.Set("X-Operator-Key", c.privateKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("ledger error (%d): %s", response.StatusCode, strings.TrimSpace(string(responseBody)))
	}
	return responseBody, nil
}

// MockLedgerClient counts topic creations and records submissions.
type MockLedgerClient struct {
	TopicID   string
	CreateErr error
	SubmitErr error

	mu          sync.Mutex
	CreateCalls int
	Submitted   [][]byte
}

func (m *MockLedgerClient) CreateTopic(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if m.TopicID == "" {
		return "0.0.1001", nil
	}
	return m.TopicID, nil
}

func (m *MockLedgerClient) Submit(_ context.Context, _ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.Submitted = append(m.Submitted, message)
	return nil
}
