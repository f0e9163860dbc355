package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"donations-service/models"
)

const testWebhookSecret = "whsec_test"

type memoryStore struct {
	created []models.DonationFields
	err     error
}

func (m *memoryStore) ListRecent(ctx context.Context, limit int) ([]models.DonationRecord, error) {
	return nil, nil
}

func (m *memoryStore) CreateDonation(ctx context.Context, fields models.DonationFields) (*models.DonationRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, fields)
	return &models.DonationRecord{ID: "rec1", Fields: fields}, nil
}

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "amount_total": 1500,
    "metadata": {"name": "Alice", "message": "Thanks"}
  }}
}`

func signed(payload string) (string, []byte) {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	return sp.Header, sp.Payload
}

func TestWebhook_RecordsCompletedCheckout(t *testing.T) {
	store := &memoryStore{}
	svc := NewWebhookService(testWebhookSecret, store)

	header, payload := signed(completedEvent)
	event, err := svc.ParseEvent(payload, header)
	require.NoError(t, err)

	handled, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, store.created, 1)
	assert.Equal(t, models.DonationFields{Name: "Alice", Message: "Thanks", Amount: 15}, store.created[0])
}

func TestWebhook_BadSignature(t *testing.T) {
	svc := NewWebhookService(testWebhookSecret, &memoryStore{})

	_, err := svc.ParseEvent([]byte(completedEvent), "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	store := &memoryStore{}
	svc := NewWebhookService(testWebhookSecret, store)

	handled, err := svc.HandleEvent(context.Background(), stripe.Event{ID: "evt_2", Type: "payment_intent.created"})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, store.created)
}

func TestWebhook_StoreFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("records store returned status 500")}
	svc := NewWebhookService(testWebhookSecret, store)

	header, payload := signed(completedEvent)
	event, err := svc.ParseEvent(payload, header)
	require.NoError(t, err)

	handled, err := svc.HandleEvent(context.Background(), event)
	assert.True(t, handled)
	assert.Error(t, err)
}
