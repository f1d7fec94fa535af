package repository

import (
	"context"

	"github.com/mattfreire/mentors/internal/models"
)

type CreatePaymentInput struct {
	SessionID  int64
	CheckoutID string
	Amount     int64
	Currency   string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, session_id, checkout_id, amount, currency, status, created_at, updated_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.CheckoutID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (session_id, checkout_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query, input.SessionID, input.CheckoutID, input.Amount, input.Currency))
}

func (r *PaymentRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, checkoutID))
}

// CountBySession returns how many checkouts have been opened for a session.
func (r *PaymentRepository) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE session_id = $1`, sessionID).Scan(&count)
	return count, err
}

// SettleCheckout marks the pending payment row of a completed checkout paid.
func (r *PaymentRepository) SettleCheckout(ctx context.Context, sessionID int64, checkoutID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = 'paid', updated_at = NOW()
		WHERE session_id = $1 AND checkout_id = $2 AND status = 'pending'
	`, sessionID, checkoutID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordEvent stores a processor event id and reports whether it was new.
func (r *PaymentRepository) RecordEvent(ctx context.Context, eventID string, eventType string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO payment_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
