package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"

	"donations-service/logging"
	"donations-service/models"
)

const eventCheckoutCompleted stripe.EventType = "checkout.session.completed"

// WebhookService verifies provider webhooks and records completed donations
type WebhookService struct {
	secret string
	store  RecordStore
}

// NewWebhookService creates a new webhook service
func NewWebhookService(secret string, store RecordStore) *WebhookService {
	return &WebhookService{secret: secret, store: store}
}

// ParseEvent verifies the signature header and decodes the event
func (w *WebhookService) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// HandleEvent applies a verified event. It reports whether the event type was
// one this service acts on.
func (w *WebhookService) HandleEvent(ctx context.Context, event stripe.Event) (bool, error) {
	logger := logging.FromContext(ctx)

	if event.Type != eventCheckoutCompleted {
		logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		return false, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return true, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	fields := models.DonationFields{
		Name:    sess.Metadata["name"],
		Message: sess.Metadata["message"],
		Amount:  float64(sess.AmountTotal) / 100,
	}
	if _, err := w.store.CreateDonation(ctx, fields); err != nil {
		return true, fmt.Errorf("failed to record donation for session %s: %w", sess.ID, err)
	}

	logger.Info("Checkout completed",
		zap.String("event_id", event.ID),
		zap.String("session_id", sess.ID),
		zap.Float64("amount", fields.Amount),
	)
	return true, nil
}
