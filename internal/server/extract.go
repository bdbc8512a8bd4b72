package server

import (
	"strconv"
	"strings"
)

// fieldSpec names one expected "Label: value" line and the default used when
// the oracle never produced it.
type fieldSpec struct {
	Label   string
	Default string
}

// fieldOutcome is the structured result of one validation rule. Overridden
// means the extracted value was replaced; Diagnostic carries the message the
// caller may propagate into a reason field. Whether it does is the caller's
// decision, not a hidden side effect of validation.
type fieldOutcome struct {
	Value      string
	Overridden bool
	Diagnostic string
}

// extractFields splits the raw oracle output into lines and matches each
// expected label prefix. The first occurrence per label wins; later
// duplicates never overwrite an earlier extraction. Missing fields take
// their declared defaults, so the result always carries every field.
func extractFields(raw string, specs []fieldSpec) map[string]string {
	values := make(map[string]string, len(specs))
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, spec := range specs {
			if _, found := values[spec.Label]; found {
				continue
			}
			prefix := spec.Label + ":"
			if strings.HasPrefix(line, prefix) {
				values[spec.Label] = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
	}
	for _, spec := range specs {
		if _, found := values[spec.Label]; !found {
			values[spec.Label] = spec.Default
		}
	}
	return values
}

// validateEnum keeps the value only when it is in the allowed set.
func validateEnum(value string, allowed []string, fallback, diagnostic string) fieldOutcome {
	for _, item := range allowed {
		if value == item {
			return fieldOutcome{Value: value}
		}
	}
	return fieldOutcome{Value: fallback, Overridden: true, Diagnostic: diagnostic}
}

// validateHeight enforces the numeric-with-unit rule for predicted heights:
// the value must end in "cm" and contain a digit, parse as a number, and
// never fall below the 10 cm floor. Unparseable values take the 100 cm
// default.
func validateHeight(value string) fieldOutcome {
	if !strings.HasSuffix(value, "cm") || !containsDigit(value) {
		return fieldOutcome{
			Value:      "100 cm",
			Overridden: true,
			Diagnostic: "AI failed to provide valid height",
		}
	}
	numeric := strings.TrimSpace(strings.TrimSuffix(value, "cm"))
	height, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return fieldOutcome{
			Value:      "100 cm",
			Overridden: true,
			Diagnostic: "Invalid height format",
		}
	}
	if height < 10 {
		return fieldOutcome{
			Value:      "10 cm",
			Overridden: true,
			Diagnostic: "Height adjusted to minimum 10 cm",
		}
	}
	return fieldOutcome{Value: value}
}

// plantingPeriodDefaults keys crop types the prompt carries growth guidelines
// for to their known planting windows.
var plantingPeriodDefaults = map[string]string{
	"Arecanut": "May to June",
	"Wheat":    "October to November",
}

// validatePlantingPeriod requires minimal structure (at least three
// whitespace-separated tokens, e.g. "May to June"); anything thinner is
// replaced by the crop-specific default, or "Unknown" for unlisted crops.
func validatePlantingPeriod(value, cropType string) fieldOutcome {
	if len(strings.Fields(value)) >= 3 {
		return fieldOutcome{Value: value}
	}
	fallback, ok := plantingPeriodDefaults[cropType]
	if !ok {
		fallback = "Unknown"
	}
	return fieldOutcome{Value: fallback, Overridden: true}
}

// boundFreeText strips everything outside the allow-list of ASCII letters,
// digits, spaces, and hyphens. An empty result is acceptable and left as-is.
func boundFreeText(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsDigit(value string) bool {
	for _, r := range value {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
