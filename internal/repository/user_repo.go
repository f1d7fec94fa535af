package repository

import (
	"context"

	"github.com/mattfreire/mentors/internal/models"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, username, name, stripe_account_id, stripe_customer_id, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Name,
		&user.StripeAccountID,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// SetProcessorAccounts stores the payment processor identifiers, keeping any
// value that is already present.
func (r *UserRepository) SetProcessorAccounts(
	ctx context.Context,
	userID int64,
	accountID string,
	customerID string,
) (*models.User, error) {
	query := `
		UPDATE users
		SET stripe_account_id = COALESCE(stripe_account_id, NULLIF($2, '')),
			stripe_customer_id = COALESCE(stripe_customer_id, NULLIF($3, '')),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, userID, accountID, customerID))
}
