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

// GenerateRequest is one prompt to the text/vision oracle. ImageJPEG, when
// set, is sent inline ahead of the text prompt.
type GenerateRequest struct {
	Prompt    string
	ImageJPEG []byte
}

// AIClient is the opaque completion oracle: prompt in, text out. Callers
// must supply their own fallback when it errors.
type AIClient interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(cfg config.Config) *GeminiClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &GeminiClient{
		apiKey:  strings.TrimSpace(cfg.GoogleAPIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/"),
		model:   strings.TrimSpace(cfg.GeminiModel),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("GOOGLE_API_KEY is not configured")
	}
	if c.baseURL == "" {
		return "", errors.New("GEMINI_BASE_URL is not configured")
	}
	if c.model == "" {
		return "", errors.New("GEMINI_MODEL is not configured")
	}

	type inlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}
	type part struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inline_data,omitempty"`
	}
	type content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}

	contents := make([]content, 0, 2)
	if len(req.ImageJPEG) > 0 {
		contents = append(contents, content{
			Role: "user",
			Parts: []part{{
				InlineData: &inlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(req.ImageJPEG),
				},
			}},
		})
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("AI request prompt is empty")
	}
	contents = append(contents, content{
		Role:  "user",
		Parts: []part{{Text: prompt}},
	})

	bodyRaw, err := json.Marshal(map[string]any{"contents": contents})
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/models/" + c.model + ":generateContent?key=" + c.apiKey
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyRaw))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("gemini error (%d): %s", response.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	answer := extractGeminiAnswer(parseJSONStringMap(responseBody))
	if strings.TrimSpace(answer) == "" {
		return "", errors.New("gemini response answer is empty")
	}
	return answer, nil
}

func extractGeminiAnswer(data map[string]any) string {
	candidates, ok := data["candidates"].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0)
	for _, item := range candidates {
		candidate, ok := item.(map[string]any)
		if !ok {
			continue
		}
		contentMap, ok := candidate["content"].(map[string]any)
		if !ok {
			continue
		}
		partList, ok := contentMap["parts"].([]any)
		if !ok {
			continue
		}
		for _, partItem := range partList {
			partMap, ok := partItem.(map[string]any)
			if !ok {
				continue
			}
			if text := strings.TrimSpace(toString(partMap["text"])); text != "" {
				parts = append(parts, text)
			}
		}
		// Only the first candidate is requested or used.
		break
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// MockAIClient answers from fixed fields, sniffing detection prompts the way
// the handlers issue them. Safe for concurrent use.
type MockAIClient struct {
	DetectedLanguage string
	Reply            string
	Err              error

	mu      sync.Mutex
	Prompts []string
}

func (m *MockAIClient) Generate(_ context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, req.Prompt)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if strings.HasPrefix(req.Prompt, "Detect the language") {
		if m.DetectedLanguage == "" {
			return "en", nil
		}
		return m.DetectedLanguage, nil
	}
	if m.Reply == "" {
		return "Mock response", nil
	}
	return m.Reply, nil
}
