package server

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ratingRequest struct {
	Rating *int `json:"rating"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type chatbotRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

type weatherRequest struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type cropGrowthRequest struct {
	CropType     string `json:"crop_type"`
	Location     string `json:"location"`
	PlantingDate string `json:"planting_date"`
	SoilQuality  string `json:"soil_quality"`
}

type irrigationRequest struct {
	CropType     string `json:"crop_type"`
	Location     string `json:"location"`
	PlantingDate string `json:"planting_date"`
	GrowthStage  string `json:"growth_stage"`
}

type forumPostRequest struct {
	Content string `json:"content"`
}

type voteRequest struct {
	PostID string `json:"postId"`
	Action string `json:"action"`
}

type postCommentRequest struct {
	PostID  string `json:"postId"`
	Content string `json:"content"`
}

type deletePostRequest struct {
	PostID string `json:"postId"`
}

type ledgerSubmitRequest struct {
	CropData string `json:"crop_data"`
}

func parseJSONStringMap(input []byte) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(input, &result); err != nil || result == nil {
		return map[string]any{}
	}
	return result
}

func extractNumberFromMap(data map[string]any, keys ...string) float64 {
	if data == nil {
		return 0
	}
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case json.Number:
			f, err := v.Float64()
			if err == nil {
				return f
			}
		case string:
			var parsed float64
			_, err := fmt.Sscanf(v, "%f", &parsed)
			if err == nil {
				return parsed
			}
		}
	}
	return 0
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
