package server

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestResolveLanguageAutoDefersToDetected(t *testing.T) {
	if got := resolveLanguage("none", "kn"); got != "kn" {
		t.Fatalf("expected detected kn, got %q", got)
	}
	if got := resolveLanguage("none", "xx"); got != "en" {
		t.Fatalf("expected unsupported detection to fall back to en, got %q", got)
	}
}

func TestResolveLanguageExplicitSelectionWins(t *testing.T) {
	if got := resolveLanguage("hi", "te"); got != "hi" {
		t.Fatalf("expected explicit hi to win, got %q", got)
	}
	if got := resolveLanguage("zz", "kn"); got != "en" {
		t.Fatalf("expected unsupported selection to fall back to en, got %q", got)
	}
}

func TestLanguageName(t *testing.T) {
	if got := languageName("te"); got != "Telugu" {
		t.Fatalf("expected Telugu, got %q", got)
	}
	if got := languageName("unknown"); got != "English" {
		t.Fatalf("expected unknown code to name English, got %q", got)
	}
}

func TestDetectLanguageFallsBackOnOracleError(t *testing.T) {
	app := &App{
		log: zap.NewNop(),
		ai:  &MockAIClient{Err: errors.New("oracle down")},
	}
	if got := app.detectLanguage(context.Background(), "namaskara"); got != "en" {
		t.Fatalf("expected en fallback, got %q", got)
	}
}

func TestDetectLanguageReturnsOracleAnswer(t *testing.T) {
	app := &App{
		log: zap.NewNop(),
		ai:  &MockAIClient{DetectedLanguage: "kn"},
	}
	if got := app.detectLanguage(context.Background(), "namaskara"); got != "kn" {
		t.Fatalf("expected kn, got %q", got)
	}
}
