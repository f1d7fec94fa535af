// Package lifecycle implements the start/pause/resume/end state machine of a
// mentoring session on top of the timer ledger.
//
// Transitions are pure: they inspect a session and its segments and return a
// Step describing the ledger mutation to persist. Callers are expected to hold
// a per-session lock while computing and applying a Step.
package lifecycle

import (
	"time"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/ledger"
	"github.com/mattfreire/mentors/internal/models"
)

type State string

const (
	StateNew       State = "new"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionEnd    Action = "end"
)

// Step is the outcome of a transition.
type Step struct {
	Action Action
	// Close is the running segment with its end time and length filled in.
	Close *models.TimerSegment
	// Open is a new running segment to insert.
	Open *models.TimerSegment

	Complete      bool
	EndTime       time.Time
	SessionLength int64
}

// StateOf derives the state from the completion flag and the latest segment.
func StateOf(session *models.Session, segments []models.TimerSegment) State {
	if session.Completed {
		return StateCompleted
	}
	latest, ok := ledger.Latest(segments)
	if !ok {
		return StateNew
	}
	if latest.IsOpen() {
		return StateRunning
	}
	return StatePaused
}

func isParticipant(participants models.SessionParticipants, actorID int64) bool {
	return actorID == participants.ClientID || actorID == participants.MentorUserID
}

// Start opens the first segment. Only the client may start a session so that
// a mentor cannot pad billable time.
func Start(
	session *models.Session,
	participants models.SessionParticipants,
	segments []models.TimerSegment,
	actorID int64,
	now time.Time,
) (Step, error) {
	if actorID != participants.ClientID {
		return Step{}, apperr.Permission("only the client can start the session")
	}
	if state := StateOf(session, segments); state != StateNew {
		if state == StateCompleted {
			return Step{}, apperr.InvalidState("session finished")
		}
		return Step{}, apperr.InvalidState("session already started")
	}

	opened, err := ledger.Open(segments, session.ID, now)
	if err != nil {
		return Step{}, err
	}
	return Step{Action: ActionStart, Open: &opened}, nil
}

// Toggle pauses a running session or resumes a paused one. On a session with
// no segments it behaves exactly like Start, including the client-only guard.
func Toggle(
	session *models.Session,
	participants models.SessionParticipants,
	segments []models.TimerSegment,
	actorID int64,
	now time.Time,
) (Step, error) {
	if !isParticipant(participants, actorID) {
		return Step{}, apperr.Permission("only session participants can pause or resume")
	}

	switch StateOf(session, segments) {
	case StateCompleted:
		return Step{}, apperr.InvalidState("session finished")
	case StateNew:
		return Start(session, participants, segments, actorID, now)
	case StateRunning:
		running, _ := ledger.OpenSegment(segments)
		closed, err := ledger.Close(running, now)
		if err != nil {
			return Step{}, err
		}
		return Step{Action: ActionPause, Close: &closed}, nil
	default:
		opened, err := ledger.Open(segments, session.ID, now)
		if err != nil {
			return Step{}, err
		}
		return Step{Action: ActionResume, Open: &opened}, nil
	}
}

// End closes any running segment and completes the session with the final
// ledger total. It is the only transition that sets Completed.
func End(
	session *models.Session,
	participants models.SessionParticipants,
	segments []models.TimerSegment,
	actorID int64,
	now time.Time,
) (Step, error) {
	if !isParticipant(participants, actorID) {
		return Step{}, apperr.Permission("only session participants can end the session")
	}

	step := Step{Action: ActionEnd, Complete: true, EndTime: now}
	switch StateOf(session, segments) {
	case StateCompleted:
		return Step{}, apperr.InvalidState("session finished")
	case StateNew:
		return Step{}, apperr.InvalidState("session has not started")
	case StateRunning:
		running, _ := ledger.OpenSegment(segments)
		closed, err := ledger.Close(running, now)
		if err != nil {
			return Step{}, err
		}
		step.Close = &closed
	}

	total, err := ledger.FinalTotalSeconds(Apply(session, segments, Step{Close: step.Close}).Segments)
	if err != nil {
		return Step{}, err
	}
	step.SessionLength = total
	return step, nil
}

// Result is a session and its segments after a Step.
type Result struct {
	Session  models.Session
	Segments []models.TimerSegment
}

// Apply returns the in-memory state after step without touching the inputs.
func Apply(session *models.Session, segments []models.TimerSegment, step Step) Result {
	next := Result{Session: *session, Segments: make([]models.TimerSegment, 0, len(segments)+1)}
	for _, segment := range segments {
		if step.Close != nil && segment.IsOpen() {
			segment = *step.Close
		}
		next.Segments = append(next.Segments, segment)
	}
	if step.Open != nil {
		next.Segments = append(next.Segments, *step.Open)
	}
	if step.Complete {
		end := step.EndTime
		length := step.SessionLength
		next.Session.EndTime = &end
		next.Session.SessionLength = &length
		next.Session.Completed = true
	}
	next.Segments = ledger.Sorted(next.Segments)
	return next
}
