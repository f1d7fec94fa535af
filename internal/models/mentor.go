package models

import "time"

type Mentor struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     *string   `json:"title"`
	Bio       *string   `json:"bio"`
	Rate      int64     `json:"rate"`
	Approved  bool      `json:"approved"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bookable reports whether clients may open sessions with the mentor.
func (m *Mentor) Bookable() bool {
	return m != nil && m.Approved && m.IsActive
}

type MentorProfile struct {
	Mentor
	User UserSummary `json:"user"`
}
