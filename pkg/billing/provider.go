// Package billing defines the payment-provider gateway contract. The rest
// of the application talks to the Provider interface only; concrete
// adapters live in subpackages.
package billing

import "context"

// PaymentStatus is the provider-reported state of a payment.
type PaymentStatus string

const (
	// StatusApproved means the payment settled and entitlement may be granted.
	StatusApproved PaymentStatus = "approved"

	// StatusPending means the payment has not settled yet.
	StatusPending PaymentStatus = "pending"

	// StatusRejected means the payment failed.
	StatusRejected PaymentStatus = "rejected"
)

// Item is a single line item of a payment preference.
type Item struct {
	Title       string
	Description string
	Quantity    int
	UnitPrice   float64
	CurrencyID  string
}

// BackURLs are the redirect targets the provider sends the payer back to.
type BackURLs struct {
	Success string
	Failure string
	Pending string
}

// PreferenceRequest describes a payment preference to be created.
type PreferenceRequest struct {
	Items             []Item
	PayerEmail        string
	ExternalReference string
	BackURLs          BackURLs
	NotificationURL   string
	AutoReturn        string
}

// Preference is a created payment intent. InitPoint is the URL the end user
// must be sent to in order to complete the payment.
type Preference struct {
	ID        string
	InitPoint string
}

// Payment is the authoritative record of a payment as reported by the
// provider's read API, never by a webhook body.
type Payment struct {
	ID                string
	Status            PaymentStatus
	ExternalReference string
}

// Provider is the generic interface a payment backend must implement.
type Provider interface {
	// Name returns the provider name (e.g. "mercadopago").
	Name() string

	// CreatePreference creates a payment preference and returns its id and
	// redirect URL. Opaque transport or provider failures surface as
	// ErrProviderUnavailable.
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)

	// GetPayment fetches the authoritative payment record by its
	// provider-assigned id. Returns ErrPaymentNotFound for an unknown id.
	GetPayment(ctx context.Context, id string) (*Payment, error)
}
