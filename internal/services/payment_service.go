package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/pricing"
	"github.com/mattfreire/mentors/internal/repository"
	"github.com/mattfreire/mentors/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultPayoutLimit = 20

type SettlementOutcome string

const (
	SettlementApplied   SettlementOutcome = "applied"
	SettlementDuplicate SettlementOutcome = "duplicate"
	SettlementIgnored   SettlementOutcome = "ignored"
)

type PaymentConfig struct {
	Currency    string
	FrontendURL string
	Timeout     time.Duration
	SessionURL  func(sessionID int64) string
}

type PaymentService struct {
	store     txStore
	processor PaymentProcessor
	notifier  Notifier
	cfg       PaymentConfig
}

func NewPaymentService(store txStore, processor PaymentProcessor, notifier Notifier, cfg PaymentConfig) *PaymentService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PaymentService{
		store:     store,
		processor: processor,
		notifier:  notifier,
		cfg:       cfg,
	}
}

var errPaymentsDisabled = apperr.InvalidState("payments are not configured")

// CreateCheckout opens a processor checkout for a completed session and
// returns the URL to redirect the client to. Local state is only changed by
// settlement.
func (s *PaymentService) CreateCheckout(ctx context.Context, actorID int64, sessionID int64) (string, error) {
	if s.processor == nil {
		return "", errPaymentsDisabled
	}
	r := s.store.repos()

	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return "", notFound(err, "session not found")
	}
	if session.ClientID != actorID {
		return "", apperr.Permission("only the client can pay for the session")
	}
	if !session.Completed {
		return "", apperr.InvalidState("session has not been completed")
	}
	if session.Paid {
		return "", apperr.InvalidState("session already paid")
	}

	participants, err := r.sessions.GetParticipants(ctx, sessionID)
	if err != nil {
		return "", notFound(err, "session not found")
	}
	price := pricing.Price(session.SessionLength, participants.MentorRate)
	if price == nil || *price <= 0 {
		return "", apperr.InvalidState("session has nothing to bill")
	}

	mentorUser, err := r.users.GetByID(ctx, participants.MentorUserID)
	if err != nil {
		return "", notFound(err, "mentor not found")
	}
	if mentorUser.StripeAccountID == nil || *mentorUser.StripeAccountID == "" {
		return "", apperr.InvalidState("mentor cannot receive payments yet")
	}
	client, err := r.users.GetByID(ctx, session.ClientID)
	if err != nil {
		return "", notFound(err, "client not found")
	}

	attempts, err := r.payments.CountBySession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	sessionURL := s.sessionURL(sessionID)
	req := CheckoutRequest{
		Amount:             *price,
		Currency:           s.cfg.Currency,
		Description:        fmt.Sprintf("Mentoring session with %s", displayName(mentorUser)),
		DestinationAccount: *mentorUser.StripeAccountID,
		SuccessURL:         sessionURL + "?payment=success",
		CancelURL:          sessionURL + "?payment=cancelled",
		Metadata:           map[string]string{"session_id": strconv.FormatInt(sessionID, 10)},
		IdempotencyKey:     checkoutIdempotencyKey(sessionID, attempts),
	}
	if client.StripeCustomerID != nil {
		req.CustomerID = *client.StripeCustomerID
	}

	ctx, span := telemetry.Tracer().Start(ctx, "payments.create_checkout")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", sessionID), attribute.Int64("payment.amount", *price))

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	checkout, err := s.processor.CreateCheckoutSession(callCtx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return "", err
	}

	// A unique violation means a concurrent submit with the same key already
	// recorded this checkout.
	if _, err := r.payments.Create(ctx, repository.CreatePaymentInput{
		SessionID:  sessionID,
		CheckoutID: checkout.ID,
		Amount:     *price,
		Currency:   s.cfg.Currency,
	}); err != nil && !repository.IsUniqueViolation(err) {
		return "", err
	}
	return checkout.URL, nil
}

// checkoutIdempotencyKey is stable for concurrent submits of the same
// attempt and changes once a checkout for the session has been recorded.
func checkoutIdempotencyKey(sessionID int64, attempts int) string {
	return fmt.Sprintf("session-%d-checkout-%d", sessionID, attempts+1)
}

// HandleSettlement applies a signed processor notification. Redelivered
// events and sessions that are already paid are acknowledged without side
// effects, so participants are notified at most once.
func (s *PaymentService) HandleSettlement(
	ctx context.Context,
	payload []byte,
	signatureHeader string,
) (SettlementOutcome, error) {
	if s.processor == nil {
		return "", errPaymentsDisabled
	}

	ctx, span := telemetry.Tracer().Start(ctx, "payments.handle_settlement")
	defer span.End()

	event, err := s.processor.VerifySettlement(payload, signatureHeader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		if !errors.Is(err, apperr.ErrAuthentication) && !errors.Is(err, apperr.ErrInvalidInput) {
			err = apperr.New(apperr.ErrAuthentication, err.Error())
		}
		return "", err
	}
	span.SetAttributes(attribute.String("event.id", event.ID), attribute.String("event.type", event.Type))

	if event.Type != EventCheckoutCompleted {
		return SettlementIgnored, nil
	}

	sessionID, err := strconv.ParseInt(event.Metadata["session_id"], 10, 64)
	if err != nil || sessionID <= 0 {
		return "", apperr.NotFound("settlement does not reference a session")
	}
	span.SetAttributes(attribute.Int64("session.id", sessionID))

	outcome := SettlementDuplicate
	flipped := false
	err = s.store.inTx(ctx, func(r repos) error {
		isNew, err := r.payments.RecordEvent(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !isNew {
			return nil
		}

		session, err := r.sessions.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return notFound(err, "session not found")
		}
		if !session.Completed {
			return apperr.InvalidState("settled session is not completed")
		}

		if payment, err := r.payments.GetByCheckoutID(ctx, event.CheckoutID); err == nil {
			if payment.SessionID != sessionID || payment.Amount != event.AmountTotal {
				slog.Warn("settlement does not match recorded checkout",
					"event_id", event.ID,
					"checkout_id", event.CheckoutID,
					"session_id", sessionID,
					"expected_amount", payment.Amount,
					"amount_total", event.AmountTotal,
				)
			}
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		flipped, err = r.sessions.MarkPaidIfUnpaid(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, err := r.payments.SettleCheckout(ctx, sessionID, event.CheckoutID); err != nil {
			return err
		}
		outcome = SettlementApplied
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		return "", err
	}

	if flipped {
		s.notifyPaid(ctx, sessionID)
	} else if outcome == SettlementApplied {
		outcome = SettlementDuplicate
	}
	return outcome, nil
}

func (s *PaymentService) notifyPaid(ctx context.Context, sessionID int64) {
	r := s.store.repos()
	participants, err := r.sessions.GetParticipants(ctx, sessionID)
	if err != nil {
		slog.Warn("load participants for payment notification", "session_id", sessionID, "error", err)
		return
	}

	var notifications []Notification
	if client, err := r.users.GetByID(ctx, participants.ClientID); err == nil {
		notifications = append(notifications, Notification{
			To:      client.Email,
			Subject: "Payment received",
			Body:    fmt.Sprintf("Thank you, your payment for session #%d has been received.", sessionID),
		})
	}
	if mentor, err := r.users.GetByID(ctx, participants.MentorUserID); err == nil {
		notifications = append(notifications, Notification{
			To:      mentor.Email,
			Subject: "Your session has been paid",
			Body:    fmt.Sprintf("Session #%d has been paid. The funds are on their way to your account.", sessionID),
		})
	}
	notifyAll(ctx, s.notifier, notifications...)
}

// ConnectLink returns the processor onboarding page for the actor's payout
// account.
func (s *PaymentService) ConnectLink(ctx context.Context, actorID int64) (string, error) {
	user, err := s.processorUser(ctx, actorID)
	if err != nil {
		return "", err
	}
	if user.StripeAccountID == nil {
		return "", apperr.InvalidState("payment account is not provisioned")
	}

	callCtx, cancel := s.callContext(ctx, "payments.connect_link")
	defer cancel()
	accountURL := s.cfg.FrontendURL + "/account"
	return s.processor.CreateAccountLink(callCtx, *user.StripeAccountID, accountURL+"?onboarding=refresh", accountURL)
}

func (s *PaymentService) PortalLink(ctx context.Context, actorID int64) (string, error) {
	user, err := s.processorUser(ctx, actorID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == nil {
		return "", apperr.InvalidState("customer account is not provisioned")
	}

	callCtx, cancel := s.callContext(ctx, "payments.portal_link")
	defer cancel()
	return s.processor.CreatePortalSession(callCtx, *user.StripeCustomerID, s.cfg.FrontendURL+"/account")
}

func (s *PaymentService) Balance(ctx context.Context, actorID int64) (*models.AccountBalance, error) {
	user, err := s.processorUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user.StripeAccountID == nil {
		return nil, apperr.InvalidState("payment account is not provisioned")
	}

	callCtx, cancel := s.callContext(ctx, "payments.balance")
	defer cancel()
	return s.processor.Balance(callCtx, *user.StripeAccountID)
}

func (s *PaymentService) Payouts(ctx context.Context, actorID int64) ([]models.Payout, error) {
	user, err := s.processorUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user.StripeAccountID == nil {
		return nil, apperr.InvalidState("payment account is not provisioned")
	}

	callCtx, cancel := s.callContext(ctx, "payments.payouts")
	defer cancel()
	return s.processor.Payouts(callCtx, *user.StripeAccountID, defaultPayoutLimit)
}

func (s *PaymentService) processorUser(ctx context.Context, actorID int64) (*models.User, error) {
	if s.processor == nil {
		return nil, errPaymentsDisabled
	}
	user, err := s.store.repos().users.GetByID(ctx, actorID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// callContext bounds a pass-through processor call and traces it.
func (s *PaymentService) callContext(ctx context.Context, name string) (context.Context, context.CancelFunc) {
	ctx, span := telemetry.Tracer().Start(ctx, name)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	return ctx, func() {
		cancel()
		span.End()
	}
}

func (s *PaymentService) sessionURL(sessionID int64) string {
	if s.cfg.SessionURL != nil {
		return s.cfg.SessionURL(sessionID)
	}
	return fmt.Sprintf("%s/sessions/%d", s.cfg.FrontendURL, sessionID)
}

func displayName(user *models.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Username
}
