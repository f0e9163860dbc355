package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"donations-service/logging"
	"donations-service/models"
	"donations-service/monitoring"
)

const productName = "Beer"

// ErrInvalidQuantity matches any *QuantityError.
var ErrInvalidQuantity = errors.New("invalid quantity")

// QuantityError is returned when a checkout asks for fewer than one unit or
// more than the configured maximum donation allows. Its message is shown to
// the donor.
type QuantityError struct {
	Max int
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("Quantity must be between 1 and %d", e.Max)
}

func (e *QuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// SessionCreator creates hosted checkout sessions. *session.Client satisfies it.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeSessions returns a checkout session client bound to secretKey.
func NewStripeSessions(secretKey string) *session.Client {
	return &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// CheckoutService turns donation requests into hosted checkout sessions
type CheckoutService struct {
	tracer      trace.Tracer
	sessions    SessionCreator
	currency    string
	unitCents   int64
	maxQuantity int
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(tracer trace.Tracer, sessions SessionCreator, currency string, unitCents int64, maxQuantity int) *CheckoutService {
	return &CheckoutService{
		tracer:      tracer,
		sessions:    sessions,
		currency:    currency,
		unitCents:   unitCents,
		maxQuantity: maxQuantity,
	}
}

// CreateCheckout validates req and creates a checkout session whose success and
// cancel pages live under origin. It returns the hosted checkout URL.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req *models.CheckoutRequest, origin string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "create_checkout")
	defer span.End()

	span.SetAttributes(
		attribute.Int("checkout.quantity", req.Quantity),
		attribute.Bool("checkout.has_message", req.Message != ""),
	)

	logger := logging.WithTraceContext(span)

	if req.Quantity < 1 || req.Quantity > s.maxQuantity {
		s.countCheckout(ctx, "rejected")
		span.SetAttributes(attribute.String("checkout.status", "rejected"))
		return "", &QuantityError{Max: s.maxQuantity}
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
					UnitAmount: stripe.Int64(s.unitCents),
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		SuccessURL: stripe.String(strings.TrimRight(origin, "/") + "/thank-you"),
		CancelURL:  stripe.String(strings.TrimRight(origin, "/") + "/"),
	}
	params.Context = ctx
	params.AddMetadata("name", req.Name)
	params.AddMetadata("message", req.Message)

	start := time.Now()
	sess, err := s.sessions.New(params)
	duration := time.Since(start).Seconds()

	if err != nil {
		recordExternalCall(ctx, "checkout_session", "error", duration)
		s.countCheckout(ctx, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout session failed")
		logger.Error("Checkout session creation failed",
			zap.Error(err),
			zap.Int("quantity", req.Quantity),
		)
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	recordExternalCall(ctx, "checkout_session", "success", duration)
	s.countCheckout(ctx, "created")
	monitoring.DonationAmount.Record(ctx, float64(s.unitCents*int64(req.Quantity))/100,
		metric.WithAttributes(attribute.String("currency", s.currency)),
	)

	span.SetAttributes(
		attribute.String("checkout.session_id", sess.ID),
		attribute.String("checkout.status", "created"),
	)
	logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int("quantity", req.Quantity),
	)

	return sess.URL, nil
}

// ProviderMessage extracts the user-facing message from a provider error, or
// returns "" when err did not come from the provider API.
func ProviderMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return ""
}

func (s *CheckoutService) countCheckout(ctx context.Context, status string) {
	monitoring.CheckoutCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
