package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"donations-service/models"
)

// Origin is the scheme and host the request was addressed to, honouring a
// proxy's X-Forwarded-Proto header.
func Origin(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	return proto + "://" + r.Host
}

// SiteClient calls this service's own JSON API the way the browser would.
type SiteClient struct {
	client *http.Client
}

// NewSiteClient creates a client for the donations and checkout API
func NewSiteClient() *SiteClient {
	return &SiteClient{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
}

// Donations fetches {origin}/api/donations.
func (s *SiteClient) Donations(ctx context.Context, origin string) ([]models.DonationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/api/donations", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("donations endpoint returned status %d", resp.StatusCode)
	}

	var donations []models.DonationRecord
	if err := json.NewDecoder(resp.Body).Decode(&donations); err != nil {
		return nil, fmt.Errorf("failed to decode donations: %w", err)
	}
	return donations, nil
}

// Checkout posts req to {origin}/api/checkout on behalf of clientIP. Error
// responses still carry a CheckoutResponse body, so the status code is not
// inspected.
func (s *SiteClient) Checkout(ctx context.Context, origin, clientIP string, req models.CheckoutRequest) (models.CheckoutResponse, error) {
	var out models.CheckoutResponse

	jsonData, err := json.Marshal(req)
	if err != nil {
		return out, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, origin+"/api/checkout", bytes.NewReader(jsonData))
	if err != nil {
		return out, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if clientIP != "" {
		httpReq.Header.Set("X-Forwarded-For", clientIP)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("failed to call checkout: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode checkout response (status %d): %w", resp.StatusCode, err)
	}
	return out, nil
}
