package repository

import (
	"context"

	"github.com/mattfreire/mentors/internal/models"
)

type CreateReviewInput struct {
	SessionID   int64
	Description string
	Rating      int
}

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	query := `
		INSERT INTO reviews (session_id, description, rating)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, description, rating, timestamp
	`
	var review models.Review
	err := r.db.QueryRow(ctx, query, input.SessionID, input.Description, input.Rating).Scan(
		&review.ID,
		&review.SessionID,
		&review.Description,
		&review.Rating,
		&review.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ExistsForSession(ctx context.Context, sessionID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE session_id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ReviewRepository) ReviewedSessionIDs(ctx context.Context, sessionIDs []int64) (map[int64]bool, error) {
	reviewed := make(map[int64]bool, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return reviewed, nil
	}

	rows, err := r.db.Query(ctx, `SELECT session_id FROM reviews WHERE session_id = ANY($1)`, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID int64
		if err := rows.Scan(&sessionID); err != nil {
			return nil, err
		}
		reviewed[sessionID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviewed, nil
}
