package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"donations-service/config"
	"donations-service/handlers"
	"donations-service/logging"
	"donations-service/monitoring"
	"donations-service/pages"
	"donations-service/service"
)

type routes struct {
	donations *handlers.DonationHandler
	checkout  *handlers.CheckoutHandler
	webhooks  *handlers.WebhookHandler
	landing   *pages.LandingPage
	thankYou  *pages.ThankYouPage
	limiter   *handlers.RateLimiter
	metrics   http.Handler
}

func main() {
	// Load configuration
	envErr := config.LoadDotEnv()
	cfg := config.Load()

	// Initialize structured logging
	if err := logging.InitLogger(cfg.ServiceName, cfg.OTELEndpoint); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	if envErr != nil {
		logging.Warn("Failed to read .env file", zap.Error(envErr))
	}

	if cfg.AirtableAPIKey == "" || cfg.AirtableAppID == "" || cfg.StripeSecretKey == "" {
		logging.Warn("Records store or checkout credentials missing, external calls will fail")
	}

	// Initialize OpenTelemetry
	tp, tracer, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, _, err := monitoring.InitMeter(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Initialize service layer
	records := service.NewAirtableClient(tracer, cfg.AirtableAPIURL, cfg.AirtableAppID, cfg.AirtableTable, cfg.AirtableAPIKey)
	checkoutService := service.NewCheckoutService(tracer, service.NewStripeSessions(cfg.StripeSecretKey),
		cfg.Currency, cfg.DonationInCents, cfg.MaxQuantity())
	webhookService := service.NewWebhookService(cfg.StripeWebhookSecret, records)

	// Initialize handlers
	renderer := pages.NewRenderer()
	rt := routes{
		donations: handlers.NewDonationHandler(records),
		checkout:  handlers.NewCheckoutHandler(checkoutService),
		webhooks:  handlers.NewWebhookHandler(webhookService),
		landing:   pages.NewLandingPage(pages.NewSiteClient(), renderer, cfg.DonationInCents, cfg.MaxQuantity()),
		thankYou:  pages.NewThankYouPage(renderer, "/", cfg.RedirectSeconds),
		limiter:   handlers.NewRateLimiter(cfg.CheckoutRatePerMinute, cfg.CheckoutRateBurst),
		metrics:   monitoring.MetricsHandler(),
	}

	r := gin.New()
	// Only listed proxies may set the client IP the checkout limiter keys on.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logging.Fatal("Invalid trusted proxies", zap.Error(err), zap.Strings("trusted_proxies", cfg.TrustedProxies))
	}
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(handlers.HTTPMetrics())
	r.Use(handlers.RequestLogger())
	rt.register(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Info("Donations service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logging.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown error", zap.Error(err))
	}
}

func (rt routes) register(r *gin.Engine) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(handlers.MethodNotAllowed)

	r.GET("/", rt.landing.Show)
	r.POST("/", rt.landing.Submit)
	r.GET("/thank-you", rt.thankYou.Show)
	r.GET(pages.CountdownStreamPath, rt.thankYou.Stream)

	api := r.Group("/api")
	api.Any("/donations", rt.donations.ListDonations)
	api.POST("/checkout", rt.limiter.Middleware(), rt.checkout.CreateCheckout)
	api.POST("/webhook", rt.webhooks.Receive)

	r.GET("/health", handlers.HealthCheck)
	if rt.metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.metrics))
	}
}
