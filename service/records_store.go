package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"donations-service/logging"
	"donations-service/models"
	"donations-service/monitoring"
)

const (
	// RecentDonationsLimit is how many donations the landing page shows.
	RecentDonationsLimit = 3

	sortField = "Created"
	gridView  = "Grid view"
)

type createRecordsRequest struct {
	Records []recordFields `json:"records"`
}

type recordFields struct {
	Fields models.DonationFields `json:"fields"`
}

// RecordStore reads and writes donation records
type RecordStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.DonationRecord, error)
	CreateDonation(ctx context.Context, fields models.DonationFields) (*models.DonationRecord, error)
}

// AirtableClient talks to the Airtable REST API for a single table
type AirtableClient struct {
	tracer  trace.Tracer
	baseURL string
	appID   string
	table   string
	apiKey  string
	client  *http.Client
}

// NewAirtableClient creates a records store client
func NewAirtableClient(tracer trace.Tracer, baseURL, appID, table, apiKey string) *AirtableClient {
	return &AirtableClient{
		tracer:  tracer,
		baseURL: baseURL,
		appID:   appID,
		table:   table,
		apiKey:  apiKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
}

// ListRecent returns the newest donation records, newest first, as the store orders them.
func (a *AirtableClient) ListRecent(ctx context.Context, limit int) ([]models.DonationRecord, error) {
	ctx, span := a.tracer.Start(ctx, "records.list_recent")
	defer span.End()
	span.SetAttributes(attribute.Int("records.limit", limit))

	q := url.Values{}
	q.Set("maxRecords", strconv.Itoa(limit))
	q.Set("view", gridView)
	q.Set("sort[0][field]", sortField)
	q.Set("sort[0][direction]", "desc")

	var list models.RecordList
	if err := a.do(ctx, "list", http.MethodGet, a.tableURL()+"?"+q.Encode(), nil, &list); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	if list.Records == nil {
		list.Records = []models.DonationRecord{}
	}
	span.SetAttributes(attribute.Int("records.count", len(list.Records)))
	return list.Records, nil
}

// CreateDonation stores a completed donation
func (a *AirtableClient) CreateDonation(ctx context.Context, fields models.DonationFields) (*models.DonationRecord, error) {
	ctx, span := a.tracer.Start(ctx, "records.create")
	defer span.End()
	span.SetAttributes(attribute.Float64("donation.amount", fields.Amount))

	jsonData, err := json.Marshal(createRecordsRequest{
		Records: []recordFields{{Fields: fields}},
	})
	if err != nil {
		return nil, err
	}

	var list models.RecordList
	if err := a.do(ctx, "create", http.MethodPost, a.tableURL(), jsonData, &list); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	if len(list.Records) == 0 {
		return nil, fmt.Errorf("records store returned no created record")
	}

	logging.FromContext(ctx).Info("Donation recorded",
		zap.String("record_id", list.Records[0].ID),
		zap.Float64("amount", fields.Amount),
	)
	return &list.Records[0], nil
}

func (a *AirtableClient) tableURL() string {
	return fmt.Sprintf("%s/v0/%s/%s", a.baseURL, url.PathEscape(a.appID), url.PathEscape(a.table))
}

func (a *AirtableClient) do(ctx context.Context, op, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	start := time.Now()
	resp, err := a.client.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		recordExternalCall(ctx, "records_"+op, "error", duration)
		return fmt.Errorf("failed to call records store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordExternalCall(ctx, "records_"+op, "failed", duration)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("records store returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		recordExternalCall(ctx, "records_"+op, "failed", duration)
		return fmt.Errorf("failed to decode records store response: %w", err)
	}

	recordExternalCall(ctx, "records_"+op, "success", duration)
	return nil
}

func recordExternalCall(ctx context.Context, target, status string, seconds float64) {
	monitoring.ExternalCallDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("target", target),
			attribute.String("status", status),
		),
	)
}
