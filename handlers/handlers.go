package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"donations-service/logging"
	"donations-service/models"
	"donations-service/pages"
	"donations-service/service"
)

const maxWebhookBody = int64(65536)

// DonationLister reads the most recent donations
type DonationLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.DonationRecord, error)
}

// CheckoutCreator starts hosted checkouts
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req *models.CheckoutRequest, origin string) (string, error)
}

// WebhookProcessor verifies and applies provider webhook events
type WebhookProcessor interface {
	ParseEvent(payload []byte, signature string) (stripe.Event, error)
	HandleEvent(ctx context.Context, event stripe.Event) (bool, error)
}

// DonationHandler serves the donations API
type DonationHandler struct {
	donations DonationLister
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(donations DonationLister) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// ListDonations returns the most recent donations, newest first. It is
// registered for every method and answers anything but GET with 405.
func (h *DonationHandler) ListDonations(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		MethodNotAllowed(c)
		return
	}

	ctx := c.Request.Context()
	records, err := h.donations.ListRecent(ctx, service.RecentDonationsLimit)
	if err != nil {
		logging.WithTraceContext(trace.SpanFromContext(ctx)).Error("Failed to list donations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// CheckoutHandler serves the checkout API
type CheckoutHandler struct {
	checkout CheckoutCreator
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout CheckoutCreator) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// CreateCheckout answers {url} on success and {error} otherwise
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.CheckoutResponse{Error: err.Error()})
		return
	}

	url, err := h.checkout.CreateCheckout(ctx, &req, pages.Origin(c.Request))
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuantity) {
			c.JSON(http.StatusBadRequest, models.CheckoutResponse{Error: err.Error()})
			return
		}

		logging.WithTraceContext(span).Error("Checkout failed",
			zap.Error(err),
			zap.Int("quantity", req.Quantity),
		)
		msg := service.ProviderMessage(err)
		if msg == "" {
			msg = "Checkout failed"
		}
		c.JSON(http.StatusBadGateway, models.CheckoutResponse{Error: msg})
		return
	}

	span.AddEvent("checkout_session_created")
	c.JSON(http.StatusOK, models.CheckoutResponse{URL: url})
}

// WebhookHandler receives provider webhooks
type WebhookHandler struct {
	webhooks WebhookProcessor
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhooks WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive verifies the signature and applies the event. Failures to record a
// donation answer 500 so the provider redelivers.
func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	event, err := h.webhooks.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if _, err := h.webhooks.HandleEvent(ctx, event); err != nil {
		logger.Error("Failed to process webhook",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// HealthCheck handles health check requests
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// MethodNotAllowed writes the 405 body shared by all routes
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method not allowed"})
}
