package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
)

type stubMentorService struct {
	profiles    []models.MentorProfile
	profile     *models.MentorProfile
	mentor      *models.Mentor
	err         error
	lastActorID int64
	lastID      int64
	lastUpdate  services.UpdateMentorInput
}

func (s *stubMentorService) ListMentors(context.Context) ([]models.MentorProfile, error) {
	return s.profiles, s.err
}

func (s *stubMentorService) GetMentor(_ context.Context, mentorID int64) (*models.MentorProfile, error) {
	s.lastID = mentorID
	return s.profile, s.err
}

func (s *stubMentorService) GetOwnProfile(_ context.Context, actorID int64) (*models.Mentor, error) {
	s.lastActorID = actorID
	return s.mentor, s.err
}

func (s *stubMentorService) UpdateOwnProfile(_ context.Context, actorID int64, input services.UpdateMentorInput) (*models.Mentor, error) {
	s.lastActorID = actorID
	s.lastUpdate = input
	return s.mentor, s.err
}

func TestListMentors(t *testing.T) {
	service := &stubMentorService{profiles: []models.MentorProfile{{Mentor: models.Mentor{ID: 10, Rate: 200}}}}
	app := newTestApp("1")
	app.Get("/api/v1/mentors", NewMentorHandler(service).ListMentors)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/mentors", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	mentors, ok := body["mentors"].([]any)
	if !ok || len(mentors) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestGetMentorNotFound(t *testing.T) {
	service := &stubMentorService{err: apperr.NotFound("mentor not found")}
	app := newTestApp("1")
	app.Get("/api/v1/mentors/:id", NewMentorHandler(service).GetMentor)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/mentors/99", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if service.lastID != 99 {
		t.Fatalf("expected mentor 99, got %d", service.lastID)
	}
}

func TestUpdateOwnProfilePassesOnlyProvidedFields(t *testing.T) {
	service := &stubMentorService{mentor: &models.Mentor{ID: 10, UserID: 2, Rate: 300}}
	app := newTestApp("2")
	app.Put("/api/v1/mentors/me", NewMentorHandler(service).UpdateOwnProfile)

	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/mentors/me", `{"rate": 300}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 2 {
		t.Fatalf("expected actor 2, got %d", service.lastActorID)
	}
	if service.lastUpdate.Rate == nil || *service.lastUpdate.Rate != 300 {
		t.Fatalf("expected rate 300, got %+v", service.lastUpdate)
	}
	if service.lastUpdate.Title != nil || service.lastUpdate.Bio != nil {
		t.Fatalf("expected title and bio untouched, got %+v", service.lastUpdate)
	}
}

func TestUpdateOwnProfileValidation(t *testing.T) {
	service := &stubMentorService{err: apperr.InvalidInput("rate must not be negative")}
	app := newTestApp("2")
	app.Put("/api/v1/mentors/me", NewMentorHandler(service).UpdateOwnProfile)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/mentors/me", `{"rate": -1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["error"] != "rate must not be negative" {
		t.Fatalf("unexpected body %+v", body)
	}
}
