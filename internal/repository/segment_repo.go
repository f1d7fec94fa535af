package repository

import (
	"context"
	"time"

	"github.com/mattfreire/mentors/internal/models"
)

type SegmentRepository struct {
	db DBTX
}

func NewSegmentRepository(db DBTX) *SegmentRepository {
	return &SegmentRepository{db: db}
}

const segmentColumns = `id, session_id, start_time, end_time, session_length`

func scanSegment(row scanner) (*models.TimerSegment, error) {
	var segment models.TimerSegment
	err := row.Scan(
		&segment.ID,
		&segment.SessionID,
		&segment.StartTime,
		&segment.EndTime,
		&segment.SessionLength,
	)
	if err != nil {
		return nil, err
	}
	return &segment, nil
}

// Create inserts an open segment. The partial unique index on open segments
// rejects a second one for the same session.
func (r *SegmentRepository) Create(ctx context.Context, sessionID int64, startTime time.Time) (*models.TimerSegment, error) {
	query := `
		INSERT INTO timer_segments (session_id, start_time)
		VALUES ($1, $2)
		RETURNING ` + segmentColumns
	return scanSegment(r.db.QueryRow(ctx, query, sessionID, startTime))
}

// Close stamps an open segment. Closed segments are never rewritten, so a
// closed id returns pgx.ErrNoRows.
func (r *SegmentRepository) Close(ctx context.Context, segmentID int64, endTime time.Time, length int64) (*models.TimerSegment, error) {
	query := `
		UPDATE timer_segments
		SET end_time = $2, session_length = $3
		WHERE id = $1 AND end_time IS NULL
		RETURNING ` + segmentColumns
	return scanSegment(r.db.QueryRow(ctx, query, segmentID, endTime, length))
}

func (r *SegmentRepository) ListBySessionID(ctx context.Context, sessionID int64) ([]models.TimerSegment, error) {
	query := `
		SELECT ` + segmentColumns + `
		FROM timer_segments
		WHERE session_id = $1
		ORDER BY start_time ASC, id ASC
	`
	return r.list(ctx, query, sessionID)
}

func (r *SegmentRepository) ListBySessionIDs(ctx context.Context, sessionIDs []int64) (map[int64][]models.TimerSegment, error) {
	grouped := make(map[int64][]models.TimerSegment, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return grouped, nil
	}

	query := `
		SELECT ` + segmentColumns + `
		FROM timer_segments
		WHERE session_id = ANY($1)
		ORDER BY session_id, start_time ASC, id ASC
	`
	segments, err := r.list(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	for _, segment := range segments {
		grouped[segment.SessionID] = append(grouped[segment.SessionID], segment)
	}
	return grouped, nil
}

func (r *SegmentRepository) list(ctx context.Context, query string, arg any) ([]models.TimerSegment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	segments := make([]models.TimerSegment, 0)
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *segment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}
