package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *App) weatherForecast(c *gin.Context) {
	var payload weatherRequest
	if !mustJSON(c, &payload) {
		return
	}
	lat := strings.TrimSpace(payload.Latitude)
	lon := strings.TrimSpace(payload.Longitude)
	if lat == "" || lon == "" {
		writeError(c, http.StatusBadRequest, "Latitude and Longitude are required")
		return
	}

	forecast, err := a.weather.Forecast(c.Request.Context(), lat, lon)
	if err != nil {
		a.log.Error("forecast lookup failed", zap.Error(err))
		writeError(c, http.StatusBadRequest, "Unable to fetch weather details: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location": forecast.Location,
		"forecast": forecast.Days,
	})
}
