package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/ledger"
	"github.com/mattfreire/mentors/internal/lifecycle"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/pricing"
	"github.com/mattfreire/mentors/internal/repository"
)

// Live event names pushed to the participants of a session.
const (
	EventSessionUpdated = "update-pause-session"
	EventSessionEnded   = "update-end-session"
)

type LiveUpdate struct {
	Event   string             `json:"event"`
	Action  string             `json:"action"`
	Session models.SessionView `json:"session"`
}

type SessionBroadcaster interface {
	PublishSessionUpdate(sessionID int64, update LiveUpdate)
}

type transitionFunc func(
	session *models.Session,
	participants models.SessionParticipants,
	segments []models.TimerSegment,
	actorID int64,
	now time.Time,
) (lifecycle.Step, error)

type SessionService struct {
	store       txStore
	broadcaster SessionBroadcaster
	sessionURL  func(sessionID int64) string
	now         func() time.Time
}

func NewSessionService(
	store txStore,
	broadcaster SessionBroadcaster,
	sessionURL func(sessionID int64) string,
) *SessionService {
	return &SessionService{
		store:       store,
		broadcaster: broadcaster,
		sessionURL:  sessionURL,
		now:         utcNow,
	}
}

// CreateSession books a session with a mentor and immediately starts it on
// behalf of the booking client.
func (s *SessionService) CreateSession(ctx context.Context, actorID int64, mentorID int64) (*models.SessionView, error) {
	if mentorID <= 0 {
		return nil, apperr.InvalidInput("mentor_id is required")
	}

	now := s.now()
	var (
		result       lifecycle.Result
		participants models.SessionParticipants
	)
	err := s.store.inTx(ctx, func(r repos) error {
		mentor, err := r.mentors.GetByID(ctx, mentorID)
		if err != nil {
			return notFound(err, "mentor not found")
		}
		if !mentor.Bookable() {
			return apperr.NotFound("mentor not found")
		}
		if mentor.UserID == actorID {
			return apperr.InvalidInput("cannot book a session with yourself")
		}

		session, err := r.sessions.Create(ctx, repository.CreateSessionInput{
			MentorID:  mentor.ID,
			ClientID:  actorID,
			StartTime: now,
		})
		if err != nil {
			return err
		}
		participants = models.SessionParticipants{
			ClientID:     actorID,
			MentorUserID: mentor.UserID,
			MentorRate:   mentor.Rate,
		}

		step, err := lifecycle.Start(session, participants, nil, actorID, now)
		if err != nil {
			return err
		}
		result, err = persistStep(ctx, r, session, nil, step)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.afterTransition(ctx, actorID, participants, result, lifecycle.ActionStart)
}

func (s *SessionService) StartSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error) {
	return s.transition(ctx, actorID, sessionID, lifecycle.Start)
}

// ToggleSession pauses or resumes the session timer.
func (s *SessionService) ToggleSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error) {
	return s.transition(ctx, actorID, sessionID, lifecycle.Toggle)
}

func (s *SessionService) EndSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error) {
	return s.transition(ctx, actorID, sessionID, lifecycle.End)
}

// transition serializes state changes on a session by holding its row lock
// while the ledger is read, the step computed and the step persisted.
func (s *SessionService) transition(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	fn transitionFunc,
) (*models.SessionView, error) {
	var (
		result       lifecycle.Result
		participants models.SessionParticipants
		action       lifecycle.Action
	)
	err := s.store.inTx(ctx, func(r repos) error {
		session, err := r.sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFound(err, "session not found")
		}
		found, err := r.sessions.GetParticipants(ctx, sessionID)
		if err != nil {
			return notFound(err, "session not found")
		}
		participants = *found

		segments, err := r.segments.ListBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}

		step, err := fn(session, participants, segments, actorID, s.now())
		if err != nil {
			return err
		}
		action = step.Action
		result, err = persistStep(ctx, r, session, segments, step)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.afterTransition(ctx, actorID, participants, result, action)
}

func persistStep(
	ctx context.Context,
	r repos,
	session *models.Session,
	segments []models.TimerSegment,
	step lifecycle.Step,
) (lifecycle.Result, error) {
	if step.Close != nil {
		closed, err := r.segments.Close(ctx, step.Close.ID, *step.Close.EndTime, *step.Close.SessionLength)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return lifecycle.Result{}, apperr.InvalidState("segment already closed")
			}
			return lifecycle.Result{}, err
		}
		step.Close = closed
	}

	if step.Open != nil {
		opened, err := r.segments.Create(ctx, session.ID, step.Open.StartTime)
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return lifecycle.Result{}, apperr.InvalidState("session timer already running")
			}
			return lifecycle.Result{}, err
		}
		step.Open = opened
	}

	if step.Complete {
		if _, err := r.sessions.Complete(ctx, session.ID, repository.CompleteSessionInput{
			EndTime:       step.EndTime,
			SessionLength: step.SessionLength,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return lifecycle.Result{}, apperr.InvalidState("session finished")
			}
			return lifecycle.Result{}, err
		}
	}

	return lifecycle.Apply(session, segments, step), nil
}

func (s *SessionService) afterTransition(
	ctx context.Context,
	actorID int64,
	participants models.SessionParticipants,
	result lifecycle.Result,
	action lifecycle.Action,
) (*models.SessionView, error) {
	reviewed := false
	if result.Session.Completed {
		exists, err := s.store.repos().reviews.ExistsForSession(ctx, result.Session.ID)
		if err != nil {
			return nil, err
		}
		reviewed = exists
	}

	view, err := s.buildView(ctx, s.store.repos(), actorID, participants, result.Session, result.Segments, reviewed)
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		event := EventSessionUpdated
		if action == lifecycle.ActionEnd {
			event = EventSessionEnded
		}
		shared := *view
		shared.OtherUser = nil
		s.broadcaster.PublishSessionUpdate(result.Session.ID, LiveUpdate{
			Event:   event,
			Action:  string(action),
			Session: shared,
		})
	}
	return view, nil
}

// GetSession returns the session as seen by one of its participants, with the
// live duration recomputed from the ledger.
func (s *SessionService) GetSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionView, error) {
	r := s.store.repos()

	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "session not found")
	}
	participants, err := r.sessions.GetParticipants(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "session not found")
	}
	if actorID != participants.ClientID && actorID != participants.MentorUserID {
		return nil, apperr.Permission("not a participant of this session")
	}

	segments, err := r.segments.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reviewed, err := r.reviews.ExistsForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, r, actorID, *participants, *session, segments, reviewed)
}

// ListSessions returns the actor's sessions as client, or as mentor when
// asMentor is set.
func (s *SessionService) ListSessions(ctx context.Context, actorID int64, asMentor bool) ([]models.SessionView, error) {
	r := s.store.repos()

	sessions, err := r.sessions.ListForUser(ctx, actorID, asMentor)
	if err != nil {
		return nil, err
	}

	sessionIDs := make([]int64, 0, len(sessions))
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
	}
	segmentsBySession, err := r.segments.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	reviewedBySession, err := r.reviews.ReviewedSessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	mentors := make(map[int64]*models.Mentor)
	views := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		mentor, ok := mentors[session.MentorID]
		if !ok {
			mentor, err = r.mentors.GetByID(ctx, session.MentorID)
			if err != nil {
				return nil, err
			}
			mentors[session.MentorID] = mentor
		}
		participants := models.SessionParticipants{
			ClientID:     session.ClientID,
			MentorUserID: mentor.UserID,
			MentorRate:   mentor.Rate,
		}
		view, err := s.buildView(
			ctx, r, actorID, participants, session,
			segmentsBySession[session.ID], reviewedBySession[session.ID],
		)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *SessionService) buildView(
	ctx context.Context,
	r repos,
	actorID int64,
	participants models.SessionParticipants,
	session models.Session,
	segments []models.TimerSegment,
	reviewed bool,
) (*models.SessionView, error) {
	client, err := r.users.GetByID(ctx, participants.ClientID)
	if err != nil {
		return nil, notFound(err, "client not found")
	}
	mentorUser, err := r.users.GetByID(ctx, participants.MentorUserID)
	if err != nil {
		return nil, notFound(err, "mentor not found")
	}

	segments = ledger.Sorted(segments)
	if segments == nil {
		segments = []models.TimerSegment{}
	}
	view := &models.SessionView{
		Session:  session,
		State:    string(lifecycle.StateOf(&session, segments)),
		Events:   segments,
		Price:    pricing.Price(session.SessionLength, participants.MentorRate),
		Reviewed: reviewed,
		Mentor:   summarize(mentorUser, true),
		Client:   summarize(client, false),
	}
	if session.Completed && session.SessionLength != nil {
		view.CurrentSessionLength = *session.SessionLength
	} else {
		view.CurrentSessionLength = ledger.CurrentTotalSeconds(segments, s.now())
	}
	if s.sessionURL != nil {
		view.SessionURL = s.sessionURL(session.ID)
	}

	switch actorID {
	case participants.ClientID:
		other := view.Mentor
		view.OtherUser = &other
	case participants.MentorUserID:
		other := view.Client
		view.OtherUser = &other
	}
	return view, nil
}

func summarize(user *models.User, isMentor bool) models.UserSummary {
	return models.UserSummary{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		IsMentor: isMentor,
	}
}
