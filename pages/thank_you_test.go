package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donations-service/countdown"
)

func fastTicks(d time.Duration, f func()) countdown.Timer {
	return time.AfterFunc(time.Millisecond, f)
}

func setupThankYou(seconds int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	page := NewThankYouPage(NewRenderer(), "/", seconds, countdown.WithScheduler(fastTicks))
	r.GET("/thank-you", page.Show)
	r.GET(CountdownStreamPath, page.Stream)
	return r
}

func TestThankYou_Show(t *testing.T) {
	r := setupThankYou(5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thank-you", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `Redirecting home in <span id="delay">5</span>...`)
	assert.Contains(t, body, `content="5;url=/"`)
	assert.Contains(t, body, "new EventSource(")
}

func TestThankYou_StreamCountsDownThenRedirects(t *testing.T) {
	r := setupThankYou(3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, CountdownStreamPath, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	expected := []string{
		"event:tick\ndata:3\n\n",
		"event:tick\ndata:2\n\n",
		"event:tick\ndata:1\n\n",
		"event:tick\ndata:0\n\n",
		"event:redirect\ndata:/\n\n",
	}
	assert.Equal(t, strings.Join(expected, ""), w.Body.String())
}

func TestThankYou_StreamZeroSecondsRedirectsAtOnce(t *testing.T) {
	r := setupThankYou(0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, CountdownStreamPath, nil))

	assert.Equal(t, "event:tick\ndata:0\n\nevent:redirect\ndata:/\n\n", w.Body.String())
}

func TestThankYou_NegativeSecondsRedirectAtOnce(t *testing.T) {
	r := setupThankYou(-5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thank-you", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `content="0;url=/"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, CountdownStreamPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "event:tick\ndata:0\n\nevent:redirect\ndata:/\n\n", w.Body.String())
}

func TestThankYou_StreamStopsOnDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	page := NewThankYouPage(NewRenderer(), "/", 5)
	r.GET(CountdownStreamPath, page.Stream)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, CountdownStreamPath, nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after the client went away")
	}
	assert.NotContains(t, w.Body.String(), "event:redirect")
}
