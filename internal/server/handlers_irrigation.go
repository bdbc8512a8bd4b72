package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var irrigationSchema = []fieldSpec{
	{Label: "Irrigation Frequency", Default: "weekly"},
	{Label: "Water Amount", Default: "5000 liters per hectare"},
	{Label: "Reason", Default: "Default irrigation plan"},
}

const irrigationFallbackResponse = "Irrigation Frequency: weekly\n" +
	"Water Amount: 5000 liters per hectare\n" +
	"Reason: Default irrigation plan"

func (a *App) createIrrigationPlan(c *gin.Context) {
	email, ok := authEmailFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload irrigationRequest
	if !mustJSON(c, &payload) {
		return
	}
	cropType := strings.TrimSpace(payload.CropType)
	location := strings.TrimSpace(payload.Location)
	if cropType == "" {
		writeError(c, http.StatusBadRequest, "Missing required field: crop_type")
		return
	}
	if location == "" {
		writeError(c, http.StatusBadRequest, "Missing required field: location")
		return
	}
	growthStage := strings.TrimSpace(payload.GrowthStage)
	if growthStage == "" {
		growthStage = "Not provided"
	}

	plantingDate := plantingNotProvided
	if raw := strings.TrimSpace(payload.PlantingDate); raw != "" && raw != plantingNotProvided {
		parsed, err := parsePlantingDate(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		plantingDate = parsed.Format("2006-01-02")
	}

	weather, err := a.weather.Current(c.Request.Context(), location)
	if err != nil {
		a.log.Error("current weather lookup failed", zap.Error(err))
		writeError(c, http.StatusBadRequest, "Invalid location")
		return
	}

	prompt := buildIrrigationPrompt(cropType, location, plantingDate, growthStage, weather)
	raw, err := a.ai.Generate(c.Request.Context(), GenerateRequest{Prompt: prompt})
	if err != nil {
		a.log.Error("irrigation oracle call failed", zap.Error(err))
		raw = irrigationFallbackResponse
	}

	fields := extractFields(raw, irrigationSchema)
	frequency := boundFreeText(fields["Irrigation Frequency"])
	waterAmount := boundFreeText(fields["Water Amount"])
	reason := boundFreeText(fields["Reason"])

	record := gin.H{
		"email":                email,
		"crop_type":            cropType,
		"location":             location,
		"planting_date":        plantingDate,
		"growth_stage":         growthStage,
		"temperature":          weather.Temperature,
		"humidity":             weather.Humidity,
		"weather_conditions":   weather.Description,
		"irrigation_frequency": frequency,
		"water_amount":         waterAmount,
		"reason":               reason,
		"timestamp":            a.now().UTC(),
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO irrigation_plans (
			id, email, crop_type, location, planting_date, growth_stage,
			temperature, humidity, weather_conditions, irrigation_frequency,
			water_amount, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())`,
		uuid.NewString(),
		email,
		cropType,
		location,
		plantingDate,
		growthStage,
		weather.Temperature,
		weather.Humidity,
		weather.Description,
		frequency,
		waterAmount,
		reason,
	); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save irrigation plan")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Irrigation plan saved successfully!",
		"data":    record,
	})
}

func buildIrrigationPrompt(cropType, location, plantingDate, growthStage string, weather CurrentWeather) string {
	var b strings.Builder
	b.WriteString("As an irrigation expert, create a plan for this crop:\n")
	fmt.Fprintf(&b, "- Crop Type: %s\n", cropType)
	fmt.Fprintf(&b, "- Location: %s\n", location)
	fmt.Fprintf(&b, "- Planting Date: %s\n", plantingDate)
	fmt.Fprintf(&b, "- Growth Stage: %s\n", growthStage)
	fmt.Fprintf(&b, "- Current Temperature: %.1fC\n", weather.Temperature)
	fmt.Fprintf(&b, "- Current Humidity: %.0f%%\n", weather.Humidity)
	fmt.Fprintf(&b, "- Current Weather: %s\n", weather.Description)
	fmt.Fprintf(&b, "For %s (Bangalore, India):\n", location)
	b.WriteString("- Typical October: 25-28C, moderate rain\n")
	b.WriteString("- Typical November: 20-25C, dry\n")
	b.WriteString("- Typical December: 18-23C, dry\n")
	b.WriteString("Return exactly three lines in this format:\n")
	b.WriteString("Irrigation Frequency: [e.g., daily, weekly]\n")
	b.WriteString("Water Amount: [e.g., X liters per hectare]\n")
	b.WriteString("Reason: [one sentence, max 10 words]\n")
	b.WriteString("Base plan on current weather and typical seasonal conditions.\n")
	b.WriteString("Use only letters, numbers, spaces, and hyphens.")
	return b.String()
}
