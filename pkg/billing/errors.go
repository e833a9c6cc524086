package billing

import "errors"

var (
	// ErrProviderNotConfigured is returned when a provider is not properly configured
	ErrProviderNotConfigured = errors.New("billing provider not configured")

	// ErrProviderUnavailable is returned when the provider cannot be reached,
	// times out, or answers with an unexpected error
	ErrProviderUnavailable = errors.New("billing provider unavailable")

	// ErrPaymentNotFound is returned when the provider does not know the payment id
	ErrPaymentNotFound = errors.New("payment not found in billing provider")
)
