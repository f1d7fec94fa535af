package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattfreire/mentors/internal/models"
)

type ProvisionResult struct {
	User   *models.User   `json:"user"`
	Mentor *models.Mentor `json:"mentor"`
}

// AccountService provisions what every registered user needs: a mentor
// record and, when payments are configured, a payout account and a customer
// at the processor.
type AccountService struct {
	store     txStore
	processor PaymentProcessor
	timeout   time.Duration
}

func NewAccountService(store txStore, processor PaymentProcessor, timeout time.Duration) *AccountService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AccountService{store: store, processor: processor, timeout: timeout}
}

// Provision is idempotent. Processor objects are created with idempotency
// keys derived from the user id and are never replaced once stored.
func (s *AccountService) Provision(ctx context.Context, actorID int64) (*ProvisionResult, error) {
	result := &ProvisionResult{}
	err := s.store.inTx(ctx, func(r repos) error {
		user, err := r.users.GetByIDForUpdate(ctx, actorID)
		if err != nil {
			return notFound(err, "user not found")
		}

		mentor, err := r.mentors.CreateIfMissing(ctx, user.ID)
		if err != nil {
			return err
		}
		result.Mentor = mentor
		result.User = user

		if s.processor == nil {
			return nil
		}

		accountID, customerID, err := s.ensureProcessorAccounts(ctx, user)
		if err != nil {
			return err
		}
		if accountID == "" && customerID == "" {
			return nil
		}
		updated, err := r.users.SetProcessorAccounts(ctx, user.ID, accountID, customerID)
		if err != nil {
			return err
		}
		result.User = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ensureProcessorAccounts returns ids only for objects it had to create.
func (s *AccountService) ensureProcessorAccounts(ctx context.Context, user *models.User) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := AccountRequest{Email: user.Email, Name: displayName(user)}

	var accountID, customerID string
	if user.StripeAccountID == nil {
		req.IdempotencyKey = fmt.Sprintf("user-%d-account", user.ID)
		id, err := s.processor.CreateConnectedAccount(ctx, req)
		if err != nil {
			return "", "", err
		}
		accountID = id
		slog.Info("created payout account", "user_id", user.ID)
	}
	if user.StripeCustomerID == nil {
		req.IdempotencyKey = fmt.Sprintf("user-%d-customer", user.ID)
		id, err := s.processor.CreateCustomer(ctx, req)
		if err != nil {
			return "", "", err
		}
		customerID = id
		slog.Info("created customer", "user_id", user.ID)
	}
	return accountID, customerID, nil
}
