package server

import (
	"context"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const videoNoResult = "No relevant video found."

// VideoSearcher finds a treatment video for a query. Failures degrade to an
// error string; they are never raised to the caller.
type VideoSearcher interface {
	Search(ctx context.Context, query string) string
}

type YouTubeSearcher struct {
	apiKey string
}

func NewYouTubeSearcher(apiKey string) *YouTubeSearcher {
	return &YouTubeSearcher{apiKey: strings.TrimSpace(apiKey)}
}

func (s *YouTubeSearcher) Search(ctx context.Context, query string) string {
	service, err := youtube.NewService(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return "Error fetching video: " + err.Error()
	}

	response, err := service.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(1).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return "Error fetching video: " + err.Error()
	}
	if len(response.Items) == 0 || response.Items[0].Id == nil || response.Items[0].Id.VideoId == "" {
		return videoNoResult
	}
	return "https://www.youtube.com/watch?v=" + response.Items[0].Id.VideoId
}

type MockVideoSearcher struct {
	Result string
}

func (m *MockVideoSearcher) Search(_ context.Context, _ string) string {
	if m.Result == "" {
		return videoNoResult
	}
	return m.Result
}
