package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/repository"
)

const (
	maxTitleLength = 120
	maxBioLength   = 4000
)

type UpdateMentorInput struct {
	Title *string
	Bio   *string
	Rate  *int64
}

type MentorService struct {
	store txStore
}

func NewMentorService(store txStore) *MentorService {
	return &MentorService{store: store}
}

// ListMentors returns the approved, active mentors clients can book.
func (s *MentorService) ListMentors(ctx context.Context) ([]models.MentorProfile, error) {
	return s.store.repos().mentors.ListBookable(ctx)
}

func (s *MentorService) GetMentor(ctx context.Context, mentorID int64) (*models.MentorProfile, error) {
	profile, err := s.store.repos().mentors.GetProfile(ctx, mentorID)
	if err != nil {
		return nil, notFound(err, "mentor not found")
	}
	if !profile.Bookable() {
		return nil, apperr.NotFound("mentor not found")
	}
	return profile, nil
}

func (s *MentorService) GetOwnProfile(ctx context.Context, actorID int64) (*models.Mentor, error) {
	mentor, err := s.store.repos().mentors.GetByUserID(ctx, actorID)
	if err != nil {
		return nil, notFound(err, "mentor profile not found")
	}
	return mentor, nil
}

func (s *MentorService) UpdateOwnProfile(ctx context.Context, actorID int64, input UpdateMentorInput) (*models.Mentor, error) {
	update := repository.UpdateMentorInput{Rate: input.Rate}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len(title) > maxTitleLength {
			return nil, apperr.InvalidInput("title is too long")
		}
		update.Title = &title
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if len(bio) > maxBioLength {
			return nil, apperr.InvalidInput("bio is too long")
		}
		update.Bio = &bio
	}
	if input.Rate != nil && *input.Rate < 0 {
		return nil, apperr.InvalidInput("rate must not be negative")
	}
	if update.Title == nil && update.Bio == nil && update.Rate == nil {
		return nil, apperr.InvalidInput("nothing to update")
	}

	mentor, err := s.store.repos().mentors.UpdatePartial(ctx, actorID, update)
	if err != nil {
		return nil, notFound(err, "mentor profile not found")
	}
	return mentor, nil
}

// Approve makes a mentor bookable. Deactivate hides it again; mentors are
// never deleted so past sessions keep their references.
func (s *MentorService) Approve(ctx context.Context, mentorID int64) (*models.Mentor, error) {
	return s.setStatus(ctx, mentorID, true, true)
}

func (s *MentorService) Deactivate(ctx context.Context, mentorID int64) (*models.Mentor, error) {
	return s.setStatus(ctx, mentorID, true, false)
}

func (s *MentorService) setStatus(ctx context.Context, mentorID int64, approved bool, active bool) (*models.Mentor, error) {
	var mentor *models.Mentor
	err := s.store.inTx(ctx, func(r repos) error {
		current, err := r.mentors.GetByID(ctx, mentorID)
		if err != nil {
			return notFound(err, "mentor not found")
		}
		if !active && !current.Approved {
			approved = false
		}
		mentor, err = r.mentors.SetStatus(ctx, mentorID, approved, active)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("mentor status changed", "mentor_id", mentorID, "approved", mentor.Approved, "active", mentor.IsActive)
	return mentor, nil
}
