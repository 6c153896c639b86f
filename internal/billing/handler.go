package billing

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBody = 65536

// WebhookHandler verifies the Stripe-Signature header and applies the event.
// Processing errors answer 500 so Stripe redelivers. Without a signing secret
// every request is refused.
func WebhookHandler(svc *Service, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			svc.log.Error().Msg("webhook received but STRIPE_WEBHOOK_SECRET is not set")
			http.Error(w, "webhooks not configured", http.StatusServiceUnavailable)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		ev, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			svc.log.Warn().Err(err).Msg("webhook signature rejected")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		duplicate, err := svc.Handle(r.Context(), ev)
		if err != nil {
			http.Error(w, "webhook processing failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"received": true, "duplicate": duplicate})
	}
}
