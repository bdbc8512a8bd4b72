package server

import (
	"errors"
	"strings"
	"time"
)

// predictionReferenceDate is the fixed "current date" all horizon math runs
// against. Persisted day counts depend on it, so switching to the wall clock
// changes the meaning of existing records.
var predictionReferenceDate = time.Date(2025, time.March, 25, 0, 0, 0, 0, time.UTC)

const plantingNotProvided = "Not provided"

var (
	errInvalidPlantingDate = errors.New("Invalid planting date format. Use DD-MM-YYYY or DD/MM/YYYY.")
	errFuturePlantingDate  = errors.New("Planting date cannot be in the future.")
)

// parsePlantingDate accepts DD-MM-YYYY or DD/MM/YYYY; slashes are
// normalized to hyphens before parsing.
func parsePlantingDate(raw string) (time.Time, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "/", "-")
	parsed, err := time.Parse("02-01-2006", normalized)
	if err != nil {
		return time.Time{}, errInvalidPlantingDate
	}
	return parsed, nil
}

type plantingHorizon struct {
	// PlantingDate is the ISO form of the supplied date, or "Not provided".
	PlantingDate      string
	DaysSincePlanting int
	DaysToNextMonth   int
	PredictionDate    string
}

// resolvePlantingHorizon normalizes the optional planting date and computes
// the day counts against the fixed reference date. The prediction horizon is
// always 30 days past the reference; a future planting date is rejected.
func resolvePlantingHorizon(raw string) (plantingHorizon, error) {
	horizon := plantingHorizon{
		PlantingDate:    plantingNotProvided,
		DaysToNextMonth: 30,
		PredictionDate:  predictionReferenceDate.AddDate(0, 0, 30).Format("2006-01-02"),
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == plantingNotProvided {
		return horizon, nil
	}

	planted, err := parsePlantingDate(raw)
	if err != nil {
		return plantingHorizon{}, err
	}
	days := int(predictionReferenceDate.Sub(planted).Hours() / 24)
	if days < 0 {
		return plantingHorizon{}, errFuturePlantingDate
	}
	horizon.PlantingDate = planted.Format("2006-01-02")
	horizon.DaysSincePlanting = days
	horizon.DaysToNextMonth = days + 30
	return horizon, nil
}
