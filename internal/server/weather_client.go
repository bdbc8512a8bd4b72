package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agrisense/backend/internal/config"
)

type ForecastDay struct {
	Date         string  `json:"date"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	WindSpeed    float64 `json:"wind_speed"`
	Description  string  `json:"description"`
	Icon         string  `json:"icon"`
	ChanceOfRain float64 `json:"chance_of_rain"`
}

type Forecast struct {
	Location string        `json:"location"`
	Days     []ForecastDay `json:"forecast"`
}

type CurrentWeather struct {
	Temperature float64
	Humidity    float64
	Description string
}

// WeatherClient is the forecast provider. Non-200 responses and missing
// expected fields surface as errors to the caller.
type WeatherClient interface {
	Forecast(ctx context.Context, lat, lon string) (Forecast, error)
	Current(ctx context.Context, location string) (CurrentWeather, error)
}

type OpenWeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenWeatherClient(cfg config.Config) *OpenWeatherClient {
	return &OpenWeatherClient{
		apiKey:  strings.TrimSpace(cfg.OpenWeatherAPIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.OpenWeatherURL), "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Forecast keeps the first entry per calendar day, capped at 7 days.
func (c *OpenWeatherClient) Forecast(ctx context.Context, lat, lon string) (Forecast, error) {
	endpoint := fmt.Sprintf(
		"%s/forecast?lat=%s&lon=%s&appid=%s&units=metric",
		c.baseURL,
		url.QueryEscape(lat),
		url.QueryEscape(lon),
		url.QueryEscape(c.apiKey),
	)
	data, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return Forecast{}, err
	}

	city, _ := data["city"].(map[string]any)
	location := toString(city["name"])
	entries, ok := data["list"].([]any)
	if !ok {
		return Forecast{}, errors.New("forecast response missing list")
	}

	seen := make(map[string]struct{}, 7)
	days := make([]ForecastDay, 0, 7)
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		timestamp := int64(extractNumberFromMap(entry, "dt"))
		date := time.Unix(timestamp, 0).UTC().Format("2006-01-02")
		if _, dup := seen[date]; dup || len(days) >= 7 {
			continue
		}
		seen[date] = struct{}{}

		main, _ := entry["main"].(map[string]any)
		wind, _ := entry["wind"].(map[string]any)
		description, icon := firstWeatherCondition(entry)
		chance := extractNumberFromMap(entry, "pop") * 100
		days = append(days, ForecastDay{
			Date:         date,
			Temperature:  extractNumberFromMap(main, "temp"),
			Humidity:     extractNumberFromMap(main, "humidity"),
			WindSpeed:    extractNumberFromMap(wind, "speed"),
			Description:  description,
			Icon:         "https://openweathermap.org/img/wn/" + icon + "@2x.png",
			ChanceOfRain: math.Round(chance*10) / 10,
		})
	}
	return Forecast{Location: location, Days: days}, nil
}

func (c *OpenWeatherClient) Current(ctx context.Context, location string) (CurrentWeather, error) {
	endpoint := fmt.Sprintf(
		"%s/weather?q=%s&appid=%s&units=metric",
		c.baseURL,
		url.QueryEscape(location),
		url.QueryEscape(c.apiKey),
	)
	data, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return CurrentWeather{}, err
	}

	main, ok := data["main"].(map[string]any)
	if !ok {
		return CurrentWeather{}, errors.New("weather response missing main")
	}
	description, _ := firstWeatherCondition(data)
	return CurrentWeather{
		Temperature: extractNumberFromMap(main, "temp"),
		Humidity:    extractNumberFromMap(main, "humidity"),
		Description: description,
	}, nil
}

func (c *OpenWeatherClient) getJSON(ctx context.Context, endpoint string) (map[string]any, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	data := parseJSONStringMap(body)
	if response.StatusCode != http.StatusOK {
		message := strings.TrimSpace(toString(data["message"]))
		if message == "" {
			message = "status " + strconv.Itoa(response.StatusCode)
		}
		return nil, errors.New("weather provider error: " + message)
	}
	if len(data) == 0 {
		return nil, errors.New("weather response is not valid JSON")
	}
	return data, nil
}

func firstWeatherCondition(entry map[string]any) (description, icon string) {
	conditions, ok := entry["weather"].([]any)
	if !ok || len(conditions) == 0 {
		return "", ""
	}
	first, ok := conditions[0].(map[string]any)
	if !ok {
		return "", ""
	}
	return toString(first["description"]), toString(first["icon"])
}

// MockWeatherClient returns canned values for tests.
type MockWeatherClient struct {
	ForecastResult Forecast
	CurrentResult  CurrentWeather
	Err            error
}

func (m *MockWeatherClient) Forecast(_ context.Context, _, _ string) (Forecast, error) {
	if m.Err != nil {
		return Forecast{}, m.Err
	}
	return m.ForecastResult, nil
}

func (m *MockWeatherClient) Current(_ context.Context, _ string) (CurrentWeather, error) {
	if m.Err != nil {
		return CurrentWeather{}, m.Err
	}
	return m.CurrentResult, nil
}
