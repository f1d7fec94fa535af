package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/repository"
)

type SubmitReviewInput struct {
	Rating      *int
	Description string
}

type ReviewService struct {
	store    txStore
	notifier Notifier
}

func NewReviewService(store txStore, notifier Notifier) *ReviewService {
	return &ReviewService{store: store, notifier: notifier}
}

// CanReview reports whether actorID may leave the one review a completed
// session accepts.
func CanReview(session *models.Session, actorID int64, reviewed bool) bool {
	return session != nil && session.Completed && session.ClientID == actorID && !reviewed
}

func (s *ReviewService) SubmitReview(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	input SubmitReviewInput,
) (*models.Review, error) {
	rating := models.DefaultRating
	if input.Rating != nil {
		rating = *input.Rating
	}

	var (
		review       *models.Review
		participants *models.SessionParticipants
	)
	err := s.store.inTx(ctx, func(r repos) error {
		session, err := r.sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFound(err, "session not found")
		}
		if session.ClientID != actorID {
			return apperr.Permission("only the client can review the session")
		}
		if !session.Completed {
			return apperr.InvalidState("session has not been completed")
		}

		reviewed, err := r.reviews.ExistsForSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !CanReview(session, actorID, reviewed) {
			return apperr.Duplicate("session has already been reviewed")
		}
		if rating < 1 || rating > 5 {
			return apperr.InvalidInput("rating must be between 1 and 5")
		}

		review, err = r.reviews.Create(ctx, repository.CreateReviewInput{
			SessionID:   sessionID,
			Description: strings.TrimSpace(input.Description),
			Rating:      rating,
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return apperr.Duplicate("session has already been reviewed")
			}
			return err
		}

		participants, err = r.sessions.GetParticipants(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if mentorUser, err := s.store.repos().users.GetByID(ctx, participants.MentorUserID); err == nil {
		notifyAll(ctx, s.notifier, Notification{
			To:      mentorUser.Email,
			Subject: "You received a new review",
			Body:    fmt.Sprintf("Your session #%d was rated %d/5.\n\n%s", sessionID, review.Rating, review.Description),
		})
	}
	return review, nil
}

func (s *ReviewService) HasBeenReviewed(ctx context.Context, sessionID int64) (bool, error) {
	return s.store.repos().reviews.ExistsForSession(ctx, sessionID)
}
