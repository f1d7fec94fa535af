package models

import "time"

const DefaultRating = 5

type Review struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"session_id"`
	Description string    `json:"description"`
	Rating      int       `json:"rating"`
	Timestamp   time.Time `json:"timestamp"`
}
