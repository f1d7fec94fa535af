package repository

import (
	"context"
	"time"

	"github.com/mattfreire/mentors/internal/models"
)

type CreateSessionInput struct {
	MentorID  int64
	ClientID  int64
	StartTime time.Time
}

type CompleteSessionInput struct {
	EndTime       time.Time
	SessionLength int64
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, mentor_id, client_id, start_time, end_time, session_length, completed, paid, created_at, updated_at`

func scanSession(row scanner) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.MentorID,
		&session.ClientID,
		&session.StartTime,
		&session.EndTime,
		&session.SessionLength,
		&session.Completed,
		&session.Paid,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO mentor_sessions (mentor_id, client_id, start_time)
		VALUES ($1, $2, $3)
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, input.MentorID, input.ClientID, input.StartTime))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM mentor_sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// GetByIDForUpdate locks the session row for the rest of the transaction.
// Every transition and settlement goes through it.
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM mentor_sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetParticipants(ctx context.Context, sessionID int64) (*models.SessionParticipants, error) {
	query := `
		SELECT s.client_id, m.user_id, m.rate
		FROM mentor_sessions s
		JOIN mentors m ON m.id = s.mentor_id
		WHERE s.id = $1
	`
	var participants models.SessionParticipants
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&participants.ClientID,
		&participants.MentorUserID,
		&participants.MentorRate,
	)
	if err != nil {
		return nil, err
	}
	return &participants, nil
}

// ListForUser returns the sessions a user takes part in, either as the
// client or as the mentor.
func (r *SessionRepository) ListForUser(ctx context.Context, userID int64, asMentor bool) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM mentor_sessions
		WHERE client_id = $1
		ORDER BY start_time DESC, id DESC
	`
	if asMentor {
		query = `
			SELECT s.id, s.mentor_id, s.client_id, s.start_time, s.end_time, s.session_length,
				   s.completed, s.paid, s.created_at, s.updated_at
			FROM mentor_sessions s
			JOIN mentors m ON m.id = s.mentor_id
			WHERE m.user_id = $1
			ORDER BY s.start_time DESC, s.id DESC
		`
	}

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Complete finalizes a session. The completed flag is only ever flipped once;
// a second call matches no row and returns pgx.ErrNoRows.
func (r *SessionRepository) Complete(ctx context.Context, sessionID int64, input CompleteSessionInput) (*models.Session, error) {
	query := `
		UPDATE mentor_sessions
		SET end_time = $2, session_length = $3, completed = TRUE, updated_at = NOW()
		WHERE id = $1 AND completed = FALSE
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, input.EndTime, input.SessionLength))
}

// MarkPaidIfUnpaid reports whether this call flipped the paid flag.
func (r *SessionRepository) MarkPaidIfUnpaid(ctx context.Context, sessionID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE mentor_sessions
		SET paid = TRUE, updated_at = NOW()
		WHERE id = $1 AND paid = FALSE
	`, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
