// Package entitlement implements the payment-confirmation workflow: it
// creates payment preferences tied to internal user ids and reconciles the
// three independent signals that may claim a payment succeeded (provider
// webhook, client confirmation fallback, admin override) into a single
// idempotent paid transition per user.
//
// The user's payment state machine has two states, unpaid -> paid. Every
// trigger performs the same monotonic set; paid is terminal and nothing in
// this package (or anywhere else in the system) moves it back.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mihaimyh/paygate/pkg/account"
	"github.com/mihaimyh/paygate/pkg/billing"
)

// ErrPaymentNotApproved is returned by ConfirmFromClient when the supplied
// payment id verifies against the provider but is not an approved payment
// for that user.
var ErrPaymentNotApproved = errors.New("payment not approved for this user")

// Product describes the single fixed-price SKU this service sells.
type Product struct {
	Title       string
	Description string
	UnitPrice   float64
	CurrencyID  string
}

// DefaultProduct returns the product sold by this deployment.
func DefaultProduct() Product {
	return Product{
		Title:       "Acceso a 10 Ideas de Negocio Exclusivas",
		Description: "Contenido digital con guías en PDF para emprender.",
		UnitPrice:   1300,
		CurrencyID:  "ARS",
	}
}

// Config holds configuration for the entitlement Coordinator.
type Config struct {
	// Store is the account store (required).
	Store account.Store

	// Provider is the payment provider gateway (required).
	Provider billing.Provider

	// FrontendURL is the origin the payer is redirected back to after the
	// provider checkout (required). Trailing slashes are trimmed.
	FrontendURL string

	// BackendURL is this service's public origin, used to build the webhook
	// notification URL (required). Trailing slashes are trimmed.
	BackendURL string

	// Product is the SKU to sell. Zero value means DefaultProduct().
	Product Product

	// Logger is optional. If nil, logging is a no-op.
	Logger Logger

	// Metrics is optional. If nil, metrics are silently ignored.
	Metrics billing.Metrics
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Provider == nil {
		return fmt.Errorf("provider is required")
	}
	if c.FrontendURL == "" {
		return fmt.Errorf("frontend URL is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL is required")
	}
	return nil
}

// Coordinator orchestrates payment-preference creation and the idempotent
// reconciliation of payment-succeeded signals.
type Coordinator struct {
	store       account.Store
	provider    billing.Provider
	frontendURL string
	backendURL  string
	product     Product
	logger      Logger
	metrics     billing.Metrics
}

// NewCoordinator creates a Coordinator with the given configuration.
func NewCoordinator(config Config) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	product := config.Product
	if product == (Product{}) {
		product = DefaultProduct()
	}

	logger := config.Logger
	if logger == nil {
		logger = &NoopLogger{}
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}

	return &Coordinator{
		store:       config.Store,
		provider:    config.Provider,
		frontendURL: strings.TrimRight(config.FrontendURL, "/"),
		backendURL:  strings.TrimRight(config.BackendURL, "/"),
		product:     product,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// CreateIntent creates a payment preference for the given user and returns
// the provider preference id and redirect URL.
//
// The user must exist; an unknown id is rejected with
// account.ErrUserNotFound before the provider is contacted. payerEmail is
// passed through to the provider for checkout prefill and is deliberately
// not validated against the stored account email.
func (c *Coordinator) CreateIntent(ctx context.Context, userID int64, payerEmail string) (*billing.Preference, error) {
	if _, err := c.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	req := &billing.PreferenceRequest{
		Items: []billing.Item{
			{
				Title:       c.product.Title,
				Description: c.product.Description,
				Quantity:    1,
				UnitPrice:   c.product.UnitPrice,
				CurrencyID:  c.product.CurrencyID,
			},
		},
		PayerEmail:        payerEmail,
		ExternalReference: strconv.FormatInt(userID, 10),
		BackURLs: billing.BackURLs{
			Success: c.frontendURL + "/index.html?status=approved",
			Failure: c.frontendURL + "/index.html?status=failure",
			Pending: c.frontendURL + "/index.html?status=pending",
		},
		NotificationURL: c.backendURL + "/payment-webhook",
		AutoReturn:      "approved",
	}

	pref, err := c.provider.CreatePreference(ctx, req)
	if err != nil {
		c.logger.Error("failed to create payment preference",
			Field{Key: "user_id", Value: userID},
			Field{Key: "error", Value: err.Error()})
		return nil, err
	}

	c.logger.Info("payment preference created",
		Field{Key: "user_id", Value: userID},
		Field{Key: "preference_id", Value: pref.ID})

	return pref, nil
}

// HandlePaymentEvent processes one payment notification by fetching the
// authoritative payment record from the provider and, if it is approved and
// references an existing user, marking that user paid.
//
// The inbound event is only a pointer: any status carried in the
// notification body itself is ignored. The transition is idempotent, so the
// provider redelivering the same event any number of times is harmless.
//
// A nil return means the event is fully handled and must be acknowledged;
// that includes non-approved payments, unknown payment ids and unparseable
// or unknown references. A non-nil return means an infrastructure failure
// (provider unreachable, store down) and the caller should signal the
// provider to redeliver.
func (c *Coordinator) HandlePaymentEvent(ctx context.Context, paymentID string) error {
	payment, err := c.provider.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, billing.ErrPaymentNotFound) {
			// The provider does not know the id it notified us about. Not an
			// infrastructure failure; redelivery would never succeed.
			c.logger.Warn("payment event references unknown payment",
				Field{Key: "payment_id", Value: paymentID})
			return nil
		}
		return fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	if payment.Status != billing.StatusApproved {
		c.logger.Debug("ignoring payment with non-approved status",
			Field{Key: "payment_id", Value: paymentID},
			Field{Key: "status", Value: string(payment.Status)})
		return nil
	}

	ref := strings.TrimSpace(payment.ExternalReference)
	if ref == "" {
		c.logger.Warn("approved payment carries no external reference",
			Field{Key: "payment_id", Value: paymentID})
		return nil
	}

	userID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		c.logger.Warn("approved payment carries unparseable external reference",
			Field{Key: "payment_id", Value: paymentID},
			Field{Key: "external_reference", Value: ref})
		return nil
	}

	if err := c.store.SetPaidByID(ctx, userID); err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			c.logger.Warn("approved payment references unknown user",
				Field{Key: "payment_id", Value: paymentID},
				Field{Key: "user_id", Value: userID})
			return nil
		}
		return fmt.Errorf("failed to mark user %d paid: %w", userID, err)
	}

	c.logger.Info("payment approved, access granted",
		Field{Key: "payment_id", Value: paymentID},
		Field{Key: "user_id", Value: userID})

	return nil
}

// ConfirmFromClient is the pull fallback invoked after the browser redirect
// returns with a success indicator.
//
// When the client supplies the payment id the provider appended to the back
// URL, the payment is re-verified against the provider: it must be approved
// and reference this user, otherwise ErrPaymentNotApproved is returned and
// nothing changes. With an empty paymentID the flag is set unconditionally,
// preserving the historical behavior; that path trusts a client-reported
// redirect and is a UX convenience, not a security boundary.
func (c *Coordinator) ConfirmFromClient(ctx context.Context, userID int64, paymentID string) error {
	if paymentID != "" {
		payment, err := c.provider.GetPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, billing.ErrPaymentNotFound) {
				return ErrPaymentNotApproved
			}
			return err
		}
		if payment.Status != billing.StatusApproved ||
			payment.ExternalReference != strconv.FormatInt(userID, 10) {
			c.logger.Warn("client confirmation failed verification",
				Field{Key: "user_id", Value: userID},
				Field{Key: "payment_id", Value: paymentID},
				Field{Key: "status", Value: string(payment.Status)})
			return ErrPaymentNotApproved
		}
	} else {
		c.logger.Warn("unverified client payment confirmation",
			Field{Key: "user_id", Value: userID})
	}

	if err := c.store.SetPaidByID(ctx, userID); err != nil {
		return err
	}

	c.logger.Info("payment confirmed by client",
		Field{Key: "user_id", Value: userID},
		Field{Key: "verified", Value: paymentID != ""})

	return nil
}

// MarkPaidByEmail is the administrative override: the same idempotent
// monotonic set, keyed by email. Authorization is the caller's
// responsibility; the HTTP layer gates the route behind an operator token.
func (c *Coordinator) MarkPaidByEmail(ctx context.Context, email string) error {
	if err := c.store.SetPaidByEmail(ctx, email); err != nil {
		return err
	}

	c.logger.Info("user marked paid by admin override",
		Field{Key: "email", Value: email})

	return nil
}
