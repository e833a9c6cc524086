package entitlement

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/mihaimyh/paygate/pkg/billing"
)

func postWebhook(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestWebhookApprovedPayment(t *testing.T) {
	coordinator, store, provider := setupCoordinator(t)
	user := registerUser(t, store, "ana@example.com")
	provider.addPayment("123", billing.StatusApproved, strconv.FormatInt(user.ID, 10))

	handler := coordinator.WebhookHandler()

	w := postWebhook(t, handler, `{"type":"payment","data":{"id":"123"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	got, _ := store.GetUserByID(context.Background(), user.ID)
	if !got.Paid {
		t.Error("user should be paid")
	}
}

func TestWebhookNumericID(t *testing.T) {
	coordinator, store, provider := setupCoordinator(t)
	user := registerUser(t, store, "ana@example.com")
	provider.addPayment("123", billing.StatusApproved, strconv.FormatInt(user.ID, 10))

	// Some notification modes send data.id as a bare number.
	w := postWebhook(t, coordinator.WebhookHandler(), `{"type":"payment","data":{"id":123}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	got, _ := store.GetUserByID(context.Background(), user.ID)
	if !got.Paid {
		t.Error("user should be paid")
	}
}

func TestWebhookAcknowledgesUnprocessableEvents(t *testing.T) {
	coordinator, store, provider := setupCoordinator(t)
	user := registerUser(t, store, "ana@example.com")
	provider.addPayment("pending", billing.StatusPending, strconv.FormatInt(user.ID, 10))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"non-payment type", `{"type":"test","data":{"id":"1"}}`},
		{"missing id", `{"type":"payment","data":{}}`},
		{"unknown payment", `{"type":"payment","data":{"id":"never-seen"}}`},
		{"pending payment", `{"type":"payment","data":{"id":"pending"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(t, coordinator.WebhookHandler(), tt.body)
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200 so the provider stops redelivering", w.Code)
			}
		})
	}

	got, _ := store.GetUserByID(context.Background(), user.ID)
	if got.Paid {
		t.Error("no event should have marked the user paid")
	}
}

func TestWebhookInfrastructureFailure(t *testing.T) {
	coordinator, _, provider := setupCoordinator(t)
	provider.paymentErr = billing.ErrProviderUnavailable

	w := postWebhook(t, coordinator.WebhookHandler(), `{"type":"payment","data":{"id":"123"}}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 so the provider redelivers", w.Code)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	coordinator, _, _ := setupCoordinator(t)

	r := httptest.NewRequest(http.MethodGet, "/payment-webhook", nil)
	w := httptest.NewRecorder()
	coordinator.WebhookHandler().ServeHTTP(w, r)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestWebhookPayloadTooLarge(t *testing.T) {
	coordinator, _, _ := setupCoordinator(t)

	body := `{"type":"payment","data":{"id":"` + strings.Repeat("x", maxWebhookBodySize) + `"}}`
	w := postWebhook(t, coordinator.WebhookHandler(), body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestWebhookRateLimit(t *testing.T) {
	coordinator, _, _ := setupCoordinator(t)
	handler := coordinator.WebhookHandler()

	var limited bool
	for i := 0; i < webhookRateLimit+1; i++ {
		r := httptest.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(`{"type":"test"}`))
		r.RemoteAddr = "1.2.3.4:5678"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected the limiter to kick in")
	}
}
