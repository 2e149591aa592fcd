package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostscore/internal/config"
	"hostscore/internal/ledger"
	"hostscore/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrInvalidCheckoutState means the processor has not confirmed payment
	// for the session, or the session does not belong to the caller.
	ErrInvalidCheckoutState = errors.New("checkout session is not in a payable state")
	ErrCheckoutUnpaid       = errors.New("checkout session has not been paid")
)

// ProviderSession is the subset of a processor checkout session the service
// reconciles against.
type ProviderSession struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	CustomerEmail string
	Metadata      map[string]string
}

// CheckoutProvider abstracts the payment processor so reconciliation logic
// can be tested without network calls.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, email, userID string) (*ProviderSession, error)
	GetSession(ctx context.Context, id string) (*ProviderSession, error)
	VerifyWebhook(payload []byte, signature string) (*ProviderSession, error)
}

// StripeProvider is the production CheckoutProvider.
type StripeProvider struct {
	priceID       string
	successURL    string
	cancelURL     string
	webhookSecret string
}

func NewStripeProvider(cfg *config.Config) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey
	return &StripeProvider{
		priceID:       cfg.StripePriceReport,
		successURL:    cfg.StripeSuccessURL,
		cancelURL:     cfg.StripeCancelURL,
		webhookSecret: cfg.StripeWebhookSecret,
	}
}

func (p *StripeProvider) CreateSession(ctx context.Context, email, userID string) (*ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.priceID), Quantity: stripe.Int64(1)},
		},
		CustomerEmail: stripe.String(email),
		Metadata:      map[string]string{"user_id": userID},
	}
	params.Context = ctx
	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return providerSessionFromStripe(sess), nil
}

func (p *StripeProvider) GetSession(ctx context.Context, id string) (*ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := checkoutsession.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetch stripe checkout session: %w", err)
	}
	return providerSessionFromStripe(sess), nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (*ProviderSession, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		return nil, nil
	}
	var sess stripe.CheckoutSession
	if err := sess.UnmarshalJSON(event.Data.Raw); err != nil {
		return nil, fmt.Errorf("decode webhook session: %w", err)
	}
	return providerSessionFromStripe(&sess), nil
}

func providerSessionFromStripe(sess *stripe.CheckoutSession) *ProviderSession {
	ps := &ProviderSession{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
	if sess.CustomerEmail != "" {
		ps.CustomerEmail = sess.CustomerEmail
	} else if sess.CustomerDetails != nil {
		ps.CustomerEmail = sess.CustomerDetails.Email
	}
	return ps
}

// CheckoutService creates checkout sessions and reconciles completed ones
// into credits. A completed checkout grants exactly one credit no matter how
// many times confirmation or the webhook fires.
type CheckoutService struct {
	provider       CheckoutProvider
	store          *ledger.Ledger
	creditValidity time.Duration
	logger         zerolog.Logger
}

func NewCheckoutService(cfg *config.Config, provider CheckoutProvider, store *ledger.Ledger, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		provider:       provider,
		store:          store,
		creditValidity: time.Duration(cfg.CreditValidityDays) * 24 * time.Hour,
		logger:         logger.With().Str("service", "CheckoutService").Logger(),
	}
}

// CreateSession starts a checkout for the signed-in user and records the
// pending session.
func (s *CheckoutService) CreateSession(ctx context.Context, user *model.SessionData, fingerprint string) (*model.CheckoutSession, string, error) {
	ps, err := s.provider.CreateSession(ctx, user.Email, user.UserID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create checkout session")
		return nil, "", err
	}
	record := &model.CheckoutSession{
		ID:           ps.ID,
		UserID:       user.UserID,
		PendingEmail: ledger.NormalizeEmail(user.Email),
		Status:       model.CheckoutCreated,
		Fingerprint:  fingerprint,
		CreatedAt:    time.Now(),
	}
	s.store.SaveCheckout(record)
	s.logger.Info().Str("checkout_id", ps.ID).Str("user_id", user.UserID).Msg("Checkout session created")
	return record, ps.URL, nil
}

// Confirm fetches the session from the processor and reconciles it for the
// calling user. The processor's word is the only thing that moves a session
// to completed.
func (s *CheckoutService) Confirm(ctx context.Context, user *model.SessionData, checkoutID string) (*model.CheckoutSession, error) {
	ps, err := s.provider.GetSession(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	record, err := s.reconcile(ps)
	if err != nil {
		return nil, err
	}
	if record.UserID != user.UserID {
		s.logger.Warn().Str("checkout_id", checkoutID).Str("user_id", user.UserID).Msg("Checkout confirm identity mismatch")
		return nil, ErrInvalidCheckoutState
	}
	return record, nil
}

// HandleWebhook verifies and reconciles a processor webhook delivery.
func (s *CheckoutService) HandleWebhook(payload []byte, signature string) error {
	ps, err := s.provider.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}
	if ps == nil {
		// Event type we do not act on.
		return nil
	}
	_, err = s.reconcile(ps)
	if errors.Is(err, ErrCheckoutUnpaid) {
		return nil
	}
	return err
}

// reconcile applies the processor's view of a session to the local record and
// issues the credit exactly once when payment is confirmed.
func (s *CheckoutService) reconcile(ps *ProviderSession) (*model.CheckoutSession, error) {
	record, err := s.store.Checkout(ps.ID)
	if err != nil {
		return nil, ErrInvalidCheckoutState
	}

	if ps.Status == "expired" {
		s.store.ExpireCheckout(ps.ID)
		return nil, ErrInvalidCheckoutState
	}
	if ps.Status != "complete" || ps.PaymentStatus != "paid" {
		return nil, ErrCheckoutUnpaid
	}

	// The paying identity must match the session we opened.
	if uid := ps.Metadata["user_id"]; uid != "" && uid != record.UserID {
		s.logger.Warn().Str("checkout_id", ps.ID).Msg("Webhook user metadata does not match checkout record")
		return nil, ErrInvalidCheckoutState
	}
	if ps.CustomerEmail != "" && ledger.NormalizeEmail(ps.CustomerEmail) != record.PendingEmail {
		s.logger.Warn().Str("checkout_id", ps.ID).Msg("Paid email does not match checkout record")
		return nil, ErrInvalidCheckoutState
	}

	completed, credit, err := s.store.CompleteCheckout(ps.ID, s.creditValidity)
	if err != nil {
		return nil, ErrInvalidCheckoutState
	}
	if credit != nil {
		s.logger.Info().Str("checkout_id", ps.ID).Str("user_id", completed.UserID).Msg("Credit issued for completed checkout")
	}
	return completed, nil
}
