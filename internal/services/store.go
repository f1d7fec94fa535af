package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/repository"
)

type sessionStore interface {
	Create(ctx context.Context, input repository.CreateSessionInput) (*models.Session, error)
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error)
	GetParticipants(ctx context.Context, sessionID int64) (*models.SessionParticipants, error)
	ListForUser(ctx context.Context, userID int64, asMentor bool) ([]models.Session, error)
	Complete(ctx context.Context, sessionID int64, input repository.CompleteSessionInput) (*models.Session, error)
	MarkPaidIfUnpaid(ctx context.Context, sessionID int64) (bool, error)
}

type segmentStore interface {
	Create(ctx context.Context, sessionID int64, startTime time.Time) (*models.TimerSegment, error)
	Close(ctx context.Context, segmentID int64, endTime time.Time, length int64) (*models.TimerSegment, error)
	ListBySessionID(ctx context.Context, sessionID int64) ([]models.TimerSegment, error)
	ListBySessionIDs(ctx context.Context, sessionIDs []int64) (map[int64][]models.TimerSegment, error)
}

type reviewStore interface {
	Create(ctx context.Context, input repository.CreateReviewInput) (*models.Review, error)
	ExistsForSession(ctx context.Context, sessionID int64) (bool, error)
	ReviewedSessionIDs(ctx context.Context, sessionIDs []int64) (map[int64]bool, error)
}

type paymentStore interface {
	Create(ctx context.Context, input repository.CreatePaymentInput) (*models.Payment, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error)
	CountBySession(ctx context.Context, sessionID int64) (int, error)
	SettleCheckout(ctx context.Context, sessionID int64, checkoutID string) (int64, error)
	RecordEvent(ctx context.Context, eventID string, eventType string) (bool, error)
}

type mentorStore interface {
	CreateIfMissing(ctx context.Context, userID int64) (*models.Mentor, error)
	GetByID(ctx context.Context, mentorID int64) (*models.Mentor, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Mentor, error)
	GetProfile(ctx context.Context, mentorID int64) (*models.MentorProfile, error)
	ListBookable(ctx context.Context) ([]models.MentorProfile, error)
	UpdatePartial(ctx context.Context, userID int64, input repository.UpdateMentorInput) (*models.Mentor, error)
	SetStatus(ctx context.Context, mentorID int64, approved bool, active bool) (*models.Mentor, error)
}

type userStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)
	SetProcessorAccounts(ctx context.Context, userID int64, accountID string, customerID string) (*models.User, error)
}

// repos is the set of repositories bound to one connection or transaction.
type repos struct {
	sessions sessionStore
	segments segmentStore
	reviews  reviewStore
	payments paymentStore
	mentors  mentorStore
	users    userStore
}

func newRepos(db repository.DBTX) repos {
	return repos{
		sessions: repository.NewSessionRepository(db),
		segments: repository.NewSegmentRepository(db),
		reviews:  repository.NewReviewRepository(db),
		payments: repository.NewPaymentRepository(db),
		mentors:  repository.NewMentorRepository(db),
		users:    repository.NewUserRepository(db),
	}
}

type txStore interface {
	// repos returns repositories for lock-free reads outside a transaction.
	repos() repos
	inTx(ctx context.Context, fn func(repos) error) error
}

// Store hands out repositories backed by the pool or by a transaction.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) repos() repos {
	return newRepos(s.db)
}

func (s *Store) inTx(ctx context.Context, fn func(repos) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// notFound maps a missing row onto the domain error and passes anything else
// through untouched.
func notFound(err error, reason string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(reason)
	}
	return err
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
