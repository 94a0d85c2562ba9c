package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Server
	HTTPAddr string

	// Storage and messaging
	PostgresURL string
	RedisAddr   string

	// GatewayAddr enables receipts, tracker rows and ticket printing.
	GatewayAddr string

	// Payments
	StripeSecretKey string
	StripeAPIURL    string
	PaymentCurrency string
	AmountTolerance decimal.Decimal
	GatewayTimeout  time.Duration

	// Auth
	JWTSecret         string
	PurchaseRateLimit int

	// Mail; confirmation e-mails are disabled without SMTPAddr.
	SMTPAddr      string
	SMTPUser      string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string
	FrontendURL   string
}

func Load() (*Config, error) {
	tolerance, err := decimal.NewFromString(getEnv("AMOUNT_TOLERANCE", "0.00"))
	if err != nil {
		return nil, fmt.Errorf("parsing AMOUNT_TOLERANCE: %w", err)
	}
	if tolerance.IsNegative() {
		return nil, errors.New("AMOUNT_TOLERANCE must not be negative")
	}

	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		PostgresURL: getEnv("POSTGRES_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		GatewayAddr: getEnv("GATEWAY_ADDR", ""),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		StripeAPIURL:    getEnv("STRIPE_API_URL", ""),
		PaymentCurrency: getEnv("PAYMENT_CURRENCY", "usd"),
		AmountTolerance: tolerance,
		GatewayTimeout:  getEnvAsDuration("GATEWAY_TIMEOUT", "10s"),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		PurchaseRateLimit: getEnvAsInt("PURCHASE_RATE_LIMIT", 30),

		SMTPAddr:      getEnv("SMTP_ADDR", ""),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "no-reply@eventhub.local"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "EventHub"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	var missing []error
	for name, value := range map[string]string{
		"POSTGRES_URL":      cfg.PostgresURL,
		"STRIPE_SECRET_KEY": cfg.StripeSecretKey,
		"JWT_SECRET":        cfg.JWTSecret,
	} {
		if value == "" {
			missing = append(missing, fmt.Errorf("%s is required", name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
