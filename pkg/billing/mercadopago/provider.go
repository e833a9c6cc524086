// Package mercadopago implements the billing.Provider interface against the
// MercadoPago REST API. The adapter speaks plain HTTP with a bearer token;
// no SDK is involved.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mihaimyh/paygate/pkg/billing"
)

const (
	providerName       = "mercadopago"
	apiBaseURL         = "https://api.mercadopago.com"
	defaultHTTPTimeout = 10 * time.Second

	preferencesEndpoint = "/checkout/preferences"
	paymentsEndpoint    = "/v1/payments"
)

// Config holds MercadoPago adapter configuration.
type Config struct {
	// AccessToken is the MercadoPago access token used as a bearer token
	// on every outbound call (required).
	AccessToken string

	// BaseURL overrides the API base URL. Intended for tests; if empty the
	// production endpoint is used.
	BaseURL string

	// HTTPClient is an optional HTTP client for API calls.
	// If nil, a default client with 10s timeout is used. The timeout bounds
	// a hung provider call so a request never hangs indefinitely.
	HTTPClient *http.Client

	// Metrics is an optional metrics collector. If nil, metrics are
	// silently ignored (no-op).
	Metrics billing.Metrics
}

// Provider implements billing.Provider for MercadoPago.
type Provider struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
	metrics     billing.Metrics
}

// NewProvider creates a new MercadoPago provider.
func NewProvider(config Config) (*Provider, error) {
	accessToken := strings.TrimSpace(config.AccessToken)
	if accessToken == "" {
		return nil, billing.ErrProviderNotConfigured
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = apiBaseURL
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}

	return &Provider{
		accessToken: accessToken,
		baseURL:     baseURL,
		httpClient:  httpClient,
		metrics:     metrics,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// CreatePreference implements billing.Provider.
func (p *Provider) CreatePreference(ctx context.Context, req *billing.PreferenceRequest) (*billing.Preference, error) {
	startTime := time.Now()

	body := preferenceRequest{
		Payer:             preferencePayer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		BackURLs: preferenceBackURLs{
			Success: req.BackURLs.Success,
			Failure: req.BackURLs.Failure,
			Pending: req.BackURLs.Pending,
		},
		NotificationURL: req.NotificationURL,
		AutoReturn:      req.AutoReturn,
	}
	for _, item := range req.Items {
		body.Items = append(body.Items, preferenceItem{
			Title:       item.Title,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			CurrencyID:  item.CurrencyID,
		})
	}

	var resp preferenceResponse
	if err := p.doJSON(ctx, http.MethodPost, preferencesEndpoint, &body, &resp); err != nil {
		p.metrics.RecordAPICall(providerName, preferencesEndpoint, "error")
		p.metrics.RecordAPICallDuration(providerName, preferencesEndpoint, time.Since(startTime))
		return nil, err
	}

	p.metrics.RecordAPICall(providerName, preferencesEndpoint, "success")
	p.metrics.RecordAPICallDuration(providerName, preferencesEndpoint, time.Since(startTime))

	return &billing.Preference{
		ID:        resp.ID,
		InitPoint: resp.InitPoint,
	}, nil
}

// GetPayment implements billing.Provider.
func (p *Provider) GetPayment(ctx context.Context, id string) (*billing.Payment, error) {
	startTime := time.Now()
	endpoint := paymentsEndpoint + "/" + url.PathEscape(id)

	var resp paymentResponse
	err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &resp)
	if err != nil {
		status := "error"
		if err == billing.ErrPaymentNotFound {
			status = "not_found"
		}
		p.metrics.RecordAPICall(providerName, paymentsEndpoint, status)
		p.metrics.RecordAPICallDuration(providerName, paymentsEndpoint, time.Since(startTime))
		return nil, err
	}

	p.metrics.RecordAPICall(providerName, paymentsEndpoint, "success")
	p.metrics.RecordAPICallDuration(providerName, paymentsEndpoint, time.Since(startTime))

	return &billing.Payment{
		ID:                resp.ID.String(),
		Status:            billing.PaymentStatus(resp.Status),
		ExternalReference: resp.ExternalReference,
	}, nil
}

// doJSON performs one authenticated round trip. Transport failures,
// timeouts and unexpected statuses all collapse into
// ErrProviderUnavailable so callers never see provider internals; a 404
// maps to ErrPaymentNotFound.
func (p *Provider) doJSON(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", billing.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return billing.ErrPaymentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the wrapped error without trusting
		// its size.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", billing.ErrProviderUnavailable, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", billing.ErrProviderUnavailable, err)
		}
	}

	return nil
}
