package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestSubmitRatingBounds(t *testing.T) {
	resetDatabase(t)
	app, _ := newTestApp(t)
	router := app.Router()
	_, token := loginFixture(t, app)

	for _, rating := range []int{0, 6, -1} {
		rec := performRequest(t, router, http.MethodPost, "/submit_rating", token, map[string]any{
			"rating": rating,
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("rating %d: expected 400, got %d", rating, rec.Code)
		}
		if msg := responseMessage(t, rec); msg != "Invalid rating" {
			t.Fatalf("unexpected message: %q", msg)
		}
	}

	rec := performRequest(t, router, http.MethodPost, "/submit_rating", token, map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing rating: expected 400, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodPost, "/submit_rating", token, map[string]any{
		"rating": 5,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid rating: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if count := countRows(t, "ratings"); count != 1 {
		t.Fatalf("expected one rating row, got %d", count)
	}
}

func TestSubmitCommentLengthLimit(t *testing.T) {
	resetDatabase(t)
	app, _ := newTestApp(t)
	router := app.Router()
	_, token := loginFixture(t, app)

	rec := performRequest(t, router, http.MethodPost, "/submit_comment", token, map[string]any{
		"comment": strings.Repeat("x", 501),
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("long comment: expected 400, got %d", rec.Code)
	}
	if msg := responseMessage(t, rec); msg != "Invalid comment" {
		t.Fatalf("unexpected message: %q", msg)
	}

	rec = performRequest(t, router, http.MethodPost, "/submit_comment", token, map[string]any{
		"comment": strings.Repeat("x", 500),
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("boundary comment: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRecentFeedbackJoinsLatestRating(t *testing.T) {
	resetDatabase(t)
	app, _ := newTestApp(t)
	router := app.Router()
	email, token := loginFixture(t, app)

	for _, rating := range []int{2, 4} {
		rec := performRequest(t, router, http.MethodPost, "/submit_rating", token, map[string]any{
			"rating": rating,
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("rating: expected 200, got %d", rec.Code)
		}
	}
	for _, comment := range []string{"first", "second", "third", "fourth"} {
		rec := performRequest(t, router, http.MethodPost, "/submit_comment", token, map[string]any{
			"comment": comment,
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("comment: expected 200, got %d", rec.Code)
		}
	}

	rec := performRequest(t, router, http.MethodGet, "/feedback", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	feedback, ok := body["feedback"].([]any)
	if !ok {
		t.Fatalf("expected feedback list, got %v", body)
	}
	if len(feedback) != 3 {
		t.Fatalf("expected the 3 newest comments, got %d", len(feedback))
	}
	first, _ := feedback[0].(map[string]any)
	if first["email"] != email {
		t.Fatalf("unexpected feedback author: %v", first["email"])
	}
	if rating, _ := first["rating"].(float64); rating != 4 {
		t.Fatalf("expected the latest rating 4, got %v", first["rating"])
	}
}

func TestListSiteCommentsIsOpenAndValidatesID(t *testing.T) {
	resetDatabase(t)
	app, _ := newTestApp(t)
	router := app.Router()
	email, token := loginFixture(t, app)
	postID := seedPost(t, email, "watering schedules")

	rec := performRequest(t, router, http.MethodPost, "/comment", token, map[string]any{
		"postId":  postID,
		"content": "try drip irrigation",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("comment: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	// No token: the comments listing stays on the open surface.
	rec = performRequest(t, router, http.MethodGet, "/comments?post_id="+postID, "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("open comments: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	comments := decodeJSONList(t, rec)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	entry, _ := comments[0].(map[string]any)
	if entry["content"] != "try drip irrigation" {
		t.Fatalf("unexpected comment content: %v", entry["content"])
	}

	rec = performRequest(t, router, http.MethodGet, "/comments?post_id=not-a-uuid", "", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid id: expected 400, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodGet, "/comments", "", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id: expected 400, got %d", rec.Code)
	}
}
