package models

import "time"

type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	Name             string    `json:"name"`
	StripeAccountID  *string   `json:"-"`
	StripeCustomerID *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserSummary is the public projection of a user embedded in other views.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	IsMentor bool   `json:"is_mentor"`
}
