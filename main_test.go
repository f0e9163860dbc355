package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.opentelemetry.io/otel/trace/noop"

	"donations-service/handlers"
	"donations-service/pages"
	"donations-service/service"
)

type stubSessions struct {
	params []*stripe.CheckoutSessionParams
}

func (s *stubSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.params = append(s.params, params)
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://pay.example/cs_test"}, nil
}

func newTestSite(t *testing.T) (*httptest.Server, *stubSessions) {
	t.Helper()

	airtable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"records":[
			{"id":"rec2","fields":{"name":"Bob","amount":10,"message":"Great work"}},
			{"id":"rec1","fields":{"name":"Alice","amount":5}}
		]}`)
	}))
	t.Cleanup(airtable.Close)

	tracer := noop.NewTracerProvider().Tracer("test")
	records := service.NewAirtableClient(tracer, airtable.URL, "app123", "donations", "key")
	sessions := &stubSessions{}
	checkout := service.NewCheckoutService(tracer, sessions, "usd", 500, 20)
	renderer := pages.NewRenderer()

	rt := routes{
		donations: handlers.NewDonationHandler(records),
		checkout:  handlers.NewCheckoutHandler(checkout),
		webhooks:  handlers.NewWebhookHandler(service.NewWebhookService("whsec_test", records)),
		landing:   pages.NewLandingPage(pages.NewSiteClient(), renderer, 500, 20),
		thankYou:  pages.NewThankYouPage(renderer, "/", 5),
		limiter:   handlers.NewRateLimiter(60, 10),
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies([]string{"127.0.0.1", "::1"}))
	rt.register(r)

	site := httptest.NewServer(r)
	t.Cleanup(site.Close)
	return site, sessions
}

func noRedirects() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestSite_LandingPageFetchesDonations(t *testing.T) {
	site, _ := newTestSite(t)

	resp, err := http.Get(site.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Bob donated $10")
	assert.Contains(t, string(body), "Great work")
	assert.Contains(t, string(body), "Alice donated $5")
}

func TestSite_DonateRedirectsToCheckout(t *testing.T) {
	site, sessions := newTestSite(t)

	form := url.Values{"quantity": {"3"}, "name": {"Alice"}, "message": {"Thanks"}}
	resp, err := noRedirects().Post(site.URL+"/", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://pay.example/cs_test", resp.Header.Get("Location"))

	require.Len(t, sessions.params, 1)
	p := sessions.params[0]
	assert.Equal(t, int64(3), *p.LineItems[0].Quantity)
	assert.Equal(t, "Alice", p.Metadata["name"])
	assert.Equal(t, site.URL+"/thank-you", *p.SuccessURL)
}

func TestSite_DonationsRejectsPost(t *testing.T) {
	site, _ := newTestSite(t)

	resp, err := http.Post(site.URL+"/api/donations", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"message":"Method not allowed"}`, string(body))
}

func TestSite_UnknownMethodOnCheckout(t *testing.T) {
	site, _ := newTestSite(t)

	resp, err := http.Get(site.URL + "/api/checkout")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
