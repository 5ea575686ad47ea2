package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auction  AuctionConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	// DSN is optional; when empty the server runs on the in-memory store.
	DSN string
}

type AuctionConfig struct {
	// MinBidIncrement is the smallest amount by which a new bid must exceed
	// the current leader.
	MinBidIncrement float64
	// ExtensionThreshold is how close to expiry a bid must land to trigger
	// an anti-snipe extension.
	ExtensionThreshold time.Duration
	// ExtensionDuration is how far the expiry is pushed back per extension.
	ExtensionDuration time.Duration
	// MonitoringInterval is the tick interval of the expiry monitor.
	MonitoringInterval time.Duration
}

type PaymentConfig struct {
	// PaymentWindow is the time a winning bidder has to confirm payment.
	PaymentWindow time.Duration
	// MaxRetryAttempts caps the number of payment attempts per auction.
	MaxRetryAttempts int
	// RetryCheckInterval is the tick interval of the payment retry scheduler.
	RetryCheckInterval time.Duration
}

// Load reads configuration from the environment (a .env file is honored if
// present) and validates it. Invalid configuration, including a set but
// unparseable variable, aborts startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Port: envString("PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN: envString("DATABASE_DSN", ""),
		},
		Auction: AuctionConfig{
			MinBidIncrement:    envFloat("MIN_BID_INCREMENT", 1, &errs),
			ExtensionThreshold: envMinutes("EXTENSION_THRESHOLD_MINUTES", 1, &errs),
			ExtensionDuration:  envMinutes("EXTENSION_DURATION_MINUTES", 1, &errs),
			MonitoringInterval: envSeconds("MONITORING_INTERVAL_SECONDS", 30, &errs),
		},
		Payment: PaymentConfig{
			PaymentWindow:      envMinutes("PAYMENT_WINDOW_MINUTES", 60, &errs),
			MaxRetryAttempts:   envInt("MAX_RETRY_ATTEMPTS", 3, &errs),
			RetryCheckInterval: envSeconds("RETRY_CHECK_INTERVAL_SECONDS", 30, &errs),
		},
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auction.MinBidIncrement <= 0 {
		return fmt.Errorf("config: MIN_BID_INCREMENT must be positive, got %v", c.Auction.MinBidIncrement)
	}
	if c.Auction.ExtensionThreshold <= 0 || c.Auction.ExtensionDuration <= 0 {
		return fmt.Errorf("config: extension threshold and duration must be positive")
	}
	if c.Auction.MonitoringInterval <= 0 {
		return fmt.Errorf("config: MONITORING_INTERVAL_SECONDS must be positive")
	}
	if c.Payment.PaymentWindow <= 0 {
		return fmt.Errorf("config: PAYMENT_WINDOW_MINUTES must be positive")
	}
	if c.Payment.MaxRetryAttempts < 1 {
		return fmt.Errorf("config: MAX_RETRY_ATTEMPTS must be at least 1, got %d", c.Payment.MaxRetryAttempts)
	}
	if c.Payment.RetryCheckInterval <= 0 {
		return fmt.Errorf("config: RETRY_CHECK_INTERVAL_SECONDS must be positive")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be an integer, got %q", key, v))
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be a number, got %q", key, v))
		return fallback
	}
	return f
}

func envSeconds(key string, fallback int, errs *[]error) time.Duration {
	return time.Duration(envInt(key, fallback, errs)) * time.Second
}

func envMinutes(key string, fallback int, errs *[]error) time.Duration {
	return time.Duration(envInt(key, fallback, errs)) * time.Minute
}
