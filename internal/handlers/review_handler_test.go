package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
)

type stubReviewService struct {
	review        *models.Review
	err           error
	lastActorID   int64
	lastSessionID int64
	lastInput     services.SubmitReviewInput
}

func (s *stubReviewService) SubmitReview(_ context.Context, actorID int64, sessionID int64, input services.SubmitReviewInput) (*models.Review, error) {
	s.lastActorID = actorID
	s.lastSessionID = sessionID
	s.lastInput = input
	return s.review, s.err
}

func TestSubmitReviewReturnsCreated(t *testing.T) {
	service := &stubReviewService{review: &models.Review{ID: 4, SessionID: 8, Rating: 4}}
	app := newTestApp("1")
	app.Post("/api/v1/sessions/:id/review", NewReviewHandler(service).SubmitReview)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/sessions/8/review", `{"rating": 4, "description": "great"}`)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 8 || service.lastInput.Rating == nil || *service.lastInput.Rating != 4 {
		t.Fatalf("unexpected input %+v", service.lastInput)
	}
	if service.lastInput.Description != "great" {
		t.Fatalf("unexpected description %q", service.lastInput.Description)
	}
	if _, ok := body["review"]; !ok {
		t.Fatalf("missing review in %+v", body)
	}
}

func TestSubmitReviewOmittedRatingIsNil(t *testing.T) {
	service := &stubReviewService{review: &models.Review{ID: 4}}
	app := newTestApp("1")
	app.Post("/api/v1/sessions/:id/review", NewReviewHandler(service).SubmitReview)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/sessions/8/review", `{"description": "ok"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastInput.Rating != nil {
		t.Fatalf("expected nil rating, got %d", *service.lastInput.Rating)
	}
}

func TestSubmitReviewDuplicate(t *testing.T) {
	service := &stubReviewService{err: apperr.Duplicate("session already reviewed")}
	app := newTestApp("1")
	app.Post("/api/v1/sessions/:id/review", NewReviewHandler(service).SubmitReview)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/sessions/8/review", `{"rating": 5}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if body["error"] != "session already reviewed" {
		t.Fatalf("unexpected body %+v", body)
	}
}
