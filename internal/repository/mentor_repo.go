package repository

import (
	"context"

	"github.com/mattfreire/mentors/internal/models"
)

type MentorRepository struct {
	db DBTX
}

func NewMentorRepository(db DBTX) *MentorRepository {
	return &MentorRepository{db: db}
}

type UpdateMentorInput struct {
	Title *string
	Bio   *string
	Rate  *int64
}

const mentorColumns = `id, user_id, title, bio, rate, approved, is_active, created_at, updated_at`

func scanMentor(row scanner) (*models.Mentor, error) {
	var mentor models.Mentor
	err := row.Scan(
		&mentor.ID,
		&mentor.UserID,
		&mentor.Title,
		&mentor.Bio,
		&mentor.Rate,
		&mentor.Approved,
		&mentor.IsActive,
		&mentor.CreatedAt,
		&mentor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &mentor, nil
}

// CreateIfMissing returns the mentor record for userID, creating an
// unapproved, inactive one when none exists.
func (r *MentorRepository) CreateIfMissing(ctx context.Context, userID int64) (*models.Mentor, error) {
	query := `
		INSERT INTO mentors (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = mentors.user_id
		RETURNING ` + mentorColumns
	return scanMentor(r.db.QueryRow(ctx, query, userID))
}

func (r *MentorRepository) GetByID(ctx context.Context, mentorID int64) (*models.Mentor, error) {
	query := `SELECT ` + mentorColumns + ` FROM mentors WHERE id = $1`
	return scanMentor(r.db.QueryRow(ctx, query, mentorID))
}

func (r *MentorRepository) GetByUserID(ctx context.Context, userID int64) (*models.Mentor, error) {
	query := `SELECT ` + mentorColumns + ` FROM mentors WHERE user_id = $1`
	return scanMentor(r.db.QueryRow(ctx, query, userID))
}

const mentorProfileSelect = `
	SELECT m.id, m.user_id, m.title, m.bio, m.rate, m.approved, m.is_active, m.created_at, m.updated_at,
		   u.id, u.username, u.name
	FROM mentors m
	JOIN users u ON u.id = m.user_id
`

func scanMentorProfile(row scanner) (*models.MentorProfile, error) {
	var profile models.MentorProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Title,
		&profile.Bio,
		&profile.Rate,
		&profile.Approved,
		&profile.IsActive,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.User.ID,
		&profile.User.Username,
		&profile.User.Name,
	)
	if err != nil {
		return nil, err
	}
	profile.User.IsMentor = profile.Approved
	return &profile, nil
}

func (r *MentorRepository) GetProfile(ctx context.Context, mentorID int64) (*models.MentorProfile, error) {
	query := mentorProfileSelect + ` WHERE m.id = $1`
	return scanMentorProfile(r.db.QueryRow(ctx, query, mentorID))
}

func (r *MentorRepository) ListBookable(ctx context.Context) ([]models.MentorProfile, error) {
	query := mentorProfileSelect + `
		WHERE m.approved = TRUE AND m.is_active = TRUE
		ORDER BY m.id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.MentorProfile, 0)
	for rows.Next() {
		profile, err := scanMentorProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *MentorRepository) UpdatePartial(ctx context.Context, userID int64, input UpdateMentorInput) (*models.Mentor, error) {
	query := `
		UPDATE mentors
		SET title = COALESCE($2, title),
			bio = COALESCE($3, bio),
			rate = COALESCE($4, rate),
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + mentorColumns
	return scanMentor(r.db.QueryRow(ctx, query, userID, input.Title, input.Bio, input.Rate))
}

// SetStatus drives the approval workflow; approving a mentor also activates it.
func (r *MentorRepository) SetStatus(ctx context.Context, mentorID int64, approved bool, active bool) (*models.Mentor, error) {
	query := `
		UPDATE mentors
		SET approved = $2, is_active = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + mentorColumns
	return scanMentor(r.db.QueryRow(ctx, query, mentorID, approved, active))
}
