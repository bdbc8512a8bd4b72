package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func geminiTestClient(serverURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:  "test",
		baseURL: serverURL,
		model:   "gemini-1.5-flash",
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func TestGeminiClientExtractsAnswer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-1.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"parts":[{"text":"Growth Status: Optimal"},{"text":"Reason: healthy"}]}}]
		}`))
	}))
	defer server.Close()

	client := geminiTestClient(server.URL)
	answer, err := client.Generate(context.Background(), GenerateRequest{Prompt: "predict"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if answer != "Growth Status: Optimal\nReason: healthy" {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestGeminiClientSendsInlineImageBeforePrompt(t *testing.T) {
	t.Parallel()

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	client := geminiTestClient(server.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{
		Prompt:    "diagnose",
		ImageJPEG: []byte{0xff, 0xd8, 0xff},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	contents, ok := received["contents"].([]any)
	if !ok || len(contents) != 2 {
		t.Fatalf("expected image and text contents, got %v", received["contents"])
	}
	first, _ := contents[0].(map[string]any)
	firstParts, _ := first["parts"].([]any)
	if len(firstParts) != 1 {
		t.Fatalf("expected single image part, got %v", first)
	}
	firstPart, _ := firstParts[0].(map[string]any)
	if _, hasInline := firstPart["inline_data"]; !hasInline {
		t.Fatalf("expected inline_data in first content, got %v", firstPart)
	}
}

func TestGeminiClientSurfacesHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := geminiTestClient(server.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "predict"})
	if err == nil {
		t.Fatalf("expected error on 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}

func TestGeminiClientRejectsEmptyCandidates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := geminiTestClient(server.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "predict"})
	if err == nil {
		t.Fatalf("expected error on empty candidates")
	}
}

func TestGeminiClientRejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	client := geminiTestClient("http://localhost:0")
	if _, err := client.Generate(context.Background(), GenerateRequest{Prompt: "   "}); err == nil {
		t.Fatalf("expected empty prompt to be rejected before any call")
	}
}

func TestExtractGeminiAnswerUsesFirstCandidateOnly(t *testing.T) {
	data := parseJSONStringMap([]byte(`{
		"candidates":[
			{"content":{"parts":[{"text":"first"}]}},
			{"content":{"parts":[{"text":"second"}]}}
		]
	}`))
	if got := extractGeminiAnswer(data); got != "first" {
		t.Fatalf("expected only first candidate text, got %q", got)
	}
}
