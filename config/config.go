package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServiceName  string
	OTELEndpoint string
	Port         string

	AirtableAPIURL string
	AirtableAPIKey string
	AirtableAppID  string
	AirtableTable  string

	StripeSecretKey     string
	StripeWebhookSecret string

	Currency           string
	DonationInCents    int64
	MaxDonationInCents int64
	RedirectSeconds    int

	CheckoutRatePerMinute int
	CheckoutRateBurst     int
	TrustedProxies        []string
}

// LoadDotEnv reads .env files into the environment without overriding
// variables already set. With no names it reads .env in the working
// directory. Missing files are not an error.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load loads configuration from environment variables. Call LoadDotEnv first
// to pick up a .env file.
func Load() *Config {
	redirectSeconds := int(getEnvInt64("REDIRECT_SECONDS", 5))
	if redirectSeconds < 0 {
		redirectSeconds = 0
	}

	return &Config{
		ServiceName:  getEnv("SERVICE_NAME", "donations-service"),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Port:         getEnv("PORT", "3000"),

		AirtableAPIURL: getEnv("AIRTABLE_API_URL", "https://api.airtable.com"),
		AirtableAPIKey: os.Getenv("AIRTABLE_API_KEY"),
		AirtableAppID:  os.Getenv("AIRTABLE_APP_ID"),
		AirtableTable:  getEnv("AIRTABLE_TABLE", "donations"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		Currency:           getEnv("CURRENCY", "usd"),
		DonationInCents:    getEnvInt64("DONATION_IN_CENTS", 500),
		MaxDonationInCents: getEnvInt64("MAX_DONATION_IN_CENTS", 10000),
		RedirectSeconds:    redirectSeconds,

		CheckoutRatePerMinute: int(getEnvInt64("CHECKOUT_RATE_PER_MINUTE", 30)),
		CheckoutRateBurst:     int(getEnvInt64("CHECKOUT_RATE_BURST", 5)),
		TrustedProxies:        getEnvList("TRUSTED_PROXIES", []string{"127.0.0.1", "::1"}),
	}
}

// MaxQuantity is the largest number of units a single donation may buy.
func (c *Config) MaxQuantity() int {
	if c.DonationInCents <= 0 {
		return 1
	}
	max := int(c.MaxDonationInCents / c.DonationInCents)
	if max < 1 {
		return 1
	}
	return max
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
