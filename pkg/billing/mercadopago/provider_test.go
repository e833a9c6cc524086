package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mihaimyh/paygate/pkg/billing"
)

func newTestProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewProvider(Config{
		AccessToken: "TEST-token",
		BaseURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	return provider, server
}

func TestNewProviderRequiresToken(t *testing.T) {
	_, err := NewProvider(Config{})
	if !errors.Is(err, billing.ErrProviderNotConfigured) {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestProviderName(t *testing.T) {
	provider, _ := newTestProvider(t, http.NotFoundHandler())
	if got := provider.Name(); got != "mercadopago" {
		t.Errorf("Name() = %q", got)
	}
}

func TestCreatePreference(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":         "pref-123",
			"init_point": "https://mp.example/checkout/pref-123",
		})
	}))

	pref, err := provider.CreatePreference(context.Background(), &billing.PreferenceRequest{
		Items: []billing.Item{{
			Title:      "Acceso a 10 Ideas de Negocio Exclusivas",
			Quantity:   1,
			UnitPrice:  1300,
			CurrencyID: "ARS",
		}},
		PayerEmail:        "ana@example.com",
		ExternalReference: "42",
		BackURLs: billing.BackURLs{
			Success: "https://front.example/index.html?status=approved",
		},
		NotificationURL: "https://back.example/payment-webhook",
		AutoReturn:      "approved",
	})
	if err != nil {
		t.Fatalf("CreatePreference failed: %v", err)
	}

	if pref.ID != "pref-123" {
		t.Errorf("preference id = %q", pref.ID)
	}
	if pref.InitPoint != "https://mp.example/checkout/pref-123" {
		t.Errorf("init point = %q", pref.InitPoint)
	}
	if gotAuth != "Bearer TEST-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["external_reference"] != "42" {
		t.Errorf("external_reference = %v", gotBody["external_reference"])
	}
	if gotBody["auto_return"] != "approved" {
		t.Errorf("auto_return = %v", gotBody["auto_return"])
	}
}

func TestGetPayment(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus billing.PaymentStatus
		wantRef    string
	}{
		{
			name:       "approved with numeric id",
			body:       `{"id": 123456789, "status": "approved", "external_reference": "42"}`,
			wantStatus: billing.StatusApproved,
			wantRef:    "42",
		},
		{
			name:       "pending",
			body:       `{"id": "987", "status": "pending", "external_reference": "7"}`,
			wantStatus: billing.StatusPending,
			wantRef:    "7",
		},
		{
			name:       "rejected without reference",
			body:       `{"id": 1, "status": "rejected"}`,
			wantStatus: billing.StatusRejected,
			wantRef:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/payments/pay-1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))

			payment, err := provider.GetPayment(context.Background(), "pay-1")
			if err != nil {
				t.Fatalf("GetPayment failed: %v", err)
			}
			if payment.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", payment.Status, tt.wantStatus)
			}
			if payment.ExternalReference != tt.wantRef {
				t.Errorf("external_reference = %q, want %q", payment.ExternalReference, tt.wantRef)
			}
		})
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Payment not found"}`))
	}))

	_, err := provider.GetPayment(context.Background(), "missing")
	if !errors.Is(err, billing.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("oops"))
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message": "invalid token"}`))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, _ := newTestProvider(t, tt.handler)

			_, err := provider.GetPayment(context.Background(), "pay-1")
			if !errors.Is(err, billing.ErrProviderUnavailable) {
				t.Errorf("expected ErrProviderUnavailable, got %v", err)
			}
		})
	}
}

func TestProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	provider, err := NewProvider(Config{AccessToken: "TEST-token", BaseURL: url})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	_, err = provider.GetPayment(context.Background(), "pay-1")
	if !errors.Is(err, billing.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}
