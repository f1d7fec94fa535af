package models

import "time"

type Session struct {
	ID            int64      `json:"id"`
	MentorID      int64      `json:"mentor_id"`
	ClientID      int64      `json:"client_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	SessionLength *int64     `json:"session_length"`
	Completed     bool       `json:"completed"`
	Paid          bool       `json:"paid"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TimerSegment is one contiguous interval of active session time. A nil
// EndTime marks the segment as running.
type TimerSegment struct {
	ID            int64      `json:"id"`
	SessionID     int64      `json:"session_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	SessionLength *int64     `json:"session_length"`
}

func (s *TimerSegment) IsOpen() bool {
	return s.EndTime == nil
}

// SessionParticipants carries the identities needed for guard checks.
type SessionParticipants struct {
	ClientID     int64
	MentorUserID int64
	MentorRate   int64
}

type SessionView struct {
	Session
	State                string         `json:"state"`
	Events               []TimerSegment `json:"events"`
	CurrentSessionLength int64          `json:"current_session_length"`
	Price                *int64         `json:"price"`
	Reviewed             bool           `json:"reviewed"`
	SessionURL           string         `json:"session_url"`
	Mentor               UserSummary    `json:"mentor_profile"`
	Client               UserSummary    `json:"client_profile"`
	OtherUser            *UserSummary   `json:"other_user,omitempty"`
}
