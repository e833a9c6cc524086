package entitlement

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mihaimyh/paygate/pkg/entitlement/internal"
)

// maxWebhookBodySize limits webhook payload size to prevent memory exhaustion.
const maxWebhookBodySize = 64 * 1024

// webhookRateLimit allows this many webhook requests per IP per minute.
const webhookRateLimit = 100

// webhookEvent is the notification envelope the provider POSTs. Only the
// event type and the payment id are read; everything else in the body,
// including any status the provider chose to embed, is ignored. MercadoPago
// sends data.id as a string in some notification modes and a bare number in
// others, so the id gets a tolerant decoder.
type webhookEvent struct {
	Type string           `json:"type"`
	Data webhookEventData `json:"data"`
}

type webhookEventData struct {
	ID flexibleID `json:"id"`
}

type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// WebhookHandler returns an http.Handler that receives payment notifications
// from the provider and applies them through HandlePaymentEvent.
//
// Response codes follow the provider's retry contract: 200 acknowledges an
// event and stops redelivery, so every event that can never succeed on retry
// (malformed body, non-payment type, unknown payment, unknown user) is
// acknowledged, while infrastructure failures return 500 to request
// redelivery. The handler is rate limited per source IP.
func (c *Coordinator) WebhookHandler() http.Handler {
	limiter := internal.NewRateLimiter(webhookRateLimit, time.Minute)
	return limiter.Middleware(http.HandlerFunc(c.handleWebhook))
}

func (c *Coordinator) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	providerName := c.provider.Name()

	body, err := internal.ReadBodyStrict(w, r, maxWebhookBodySize)
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			c.metrics.RecordWebhookError(providerName, "payload_too_large")
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		c.logger.Warn("webhook body unreadable",
			Field{Key: "error", Value: err.Error()})
		c.metrics.RecordWebhookError(providerName, "invalid_payload")
		w.WriteHeader(http.StatusOK)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Warn("webhook payload is not valid JSON",
			Field{Key: "error", Value: err.Error()})
		c.metrics.RecordWebhookError(providerName, "invalid_payload")
		w.WriteHeader(http.StatusOK)
		return
	}

	if event.Type != "payment" || event.Data.ID == "" {
		c.logger.Debug("ignoring webhook event",
			Field{Key: "type", Value: event.Type})
		c.metrics.RecordWebhookEvent(providerName, event.Type, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := c.HandlePaymentEvent(r.Context(), string(event.Data.ID)); err != nil {
		c.logger.Error("webhook processing failed",
			Field{Key: "payment_id", Value: string(event.Data.ID)},
			Field{Key: "error", Value: err.Error()})
		c.metrics.RecordWebhookEvent(providerName, event.Type, "error")
		c.metrics.RecordWebhookError(providerName, "processing_failed")
		_ = internal.WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	c.metrics.RecordWebhookEvent(providerName, event.Type, "success")
	c.metrics.RecordWebhookProcessingDuration(providerName, event.Type, time.Since(start))
	w.WriteHeader(http.StatusOK)
}
