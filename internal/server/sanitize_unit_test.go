package server

import "testing"

func TestSanitizeTextStripsMarkupAndBreaksLines(t *testing.T) {
	got := sanitizeText("**Leaf Blight**\nCause: *fungus*\nTreatment: spray")
	want := "Leaf Blight<br>Cause: fungus<br>Treatment: spray"
	if got != want {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestSanitizeTextIsIdempotent(t *testing.T) {
	once := sanitizeText("**a**\nb")
	twice := sanitizeText(once)
	if once != twice {
		t.Fatalf("expected sanitize to be idempotent, got %q then %q", once, twice)
	}
}

func TestSanitizeTextLeavesPlainContentAlone(t *testing.T) {
	plain := "Rust on wheat, severity 3/5 - treat within 7 days."
	if got := sanitizeText(plain); got != plain {
		t.Fatalf("expected plain text untouched, got %q", got)
	}
}

func TestFirstSanitizedLine(t *testing.T) {
	if got := firstSanitizedLine("Leaf Blight<br>Cause: fungus"); got != "Leaf Blight" {
		t.Fatalf("expected first line, got %q", got)
	}
	if got := firstSanitizedLine("single line only"); got != "single line only" {
		t.Fatalf("expected full text without breaks, got %q", got)
	}
}
