package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattfreire/mentors/internal/apperr"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const EventCheckoutCompleted = "checkout.session.completed"

type CheckoutRequest struct {
	Amount             int64
	Currency           string
	Description        string
	DestinationAccount string
	CustomerID         string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
	IdempotencyKey     string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SettlementEvent is a verified processor notification.
type SettlementEvent struct {
	ID          string
	Type        string
	CheckoutID  string
	AmountTotal int64
	Metadata    map[string]string
}

type AccountRequest struct {
	Email          string
	Name           string
	IdempotencyKey string
}

type PaymentProcessor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	VerifySettlement(payload []byte, signatureHeader string) (*SettlementEvent, error)
	CreateConnectedAccount(ctx context.Context, req AccountRequest) (string, error)
	CreateCustomer(ctx context.Context, req AccountRequest) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	Balance(ctx context.Context, accountID string) (*models.AccountBalance, error)
	Payouts(ctx context.Context, accountID string, limit int) ([]models.Payout, error)
}

type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProcessor(secretKey string, webhookSecret string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api, webhookSecret: webhookSecret}
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.DestinationAccount),
			},
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// VerifySettlement checks the Stripe-Signature header against the webhook
// secret before decoding anything from the payload.
func (p *StripeProcessor) VerifySettlement(payload []byte, signatureHeader string) (*SettlementEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperr.New(apperr.ErrAuthentication, err.Error())
	}

	settlement := &SettlementEvent{ID: event.ID, Type: string(event.Type)}
	if settlement.Type != EventCheckoutCompleted || event.Data == nil {
		return settlement, nil
	}

	var checkout stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
		return nil, apperr.New(apperr.ErrInvalidInput, "malformed checkout session payload")
	}
	settlement.CheckoutID = checkout.ID
	settlement.AmountTotal = checkout.AmountTotal
	settlement.Metadata = checkout.Metadata
	return settlement, nil
}

func (p *StripeProcessor) CreateConnectedAccount(ctx context.Context, req AccountRequest) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(req.Email),
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	account, err := p.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("create connected account: %w", err)
	}
	return account.ID, nil
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, req AccountRequest) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
		Name:  stripe.String(req.Name),
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	customer, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return customer.ID, nil
}

func (p *StripeProcessor) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

func (p *StripeProcessor) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return session.URL, nil
}

func (p *StripeProcessor) Balance(ctx context.Context, accountID string) (*models.AccountBalance, error) {
	params := &stripe.BalanceParams{}
	params.SetStripeAccount(accountID)
	params.Context = ctx

	balance, err := p.api.Balance.Get(params)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &models.AccountBalance{
		Available: balanceAmounts(balance.Available),
		Pending:   balanceAmounts(balance.Pending),
	}, nil
}

func balanceAmounts(amounts []*stripe.Amount) []models.BalanceAmount {
	out := make([]models.BalanceAmount, 0, len(amounts))
	for _, amount := range amounts {
		out = append(out, models.BalanceAmount{Amount: amount.Amount, Currency: string(amount.Currency)})
	}
	return out
}

func (p *StripeProcessor) Payouts(ctx context.Context, accountID string, limit int) ([]models.Payout, error) {
	params := &stripe.PayoutListParams{}
	params.Limit = stripe.Int64(int64(limit))
	params.SetStripeAccount(accountID)
	params.Context = ctx

	payouts := make([]models.Payout, 0, limit)
	iter := p.api.Payouts.List(params)
	for len(payouts) < limit && iter.Next() {
		payout := iter.Payout()
		payouts = append(payouts, models.Payout{
			ID:          payout.ID,
			Amount:      payout.Amount,
			Currency:    string(payout.Currency),
			Status:      string(payout.Status),
			ArrivalDate: time.Unix(payout.ArrivalDate, 0).UTC(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, nil
}
