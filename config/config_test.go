package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Test defaults and env overrides
func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "8080", cfg.Server.Port)
		require.Equal(t, time.Minute, cfg.Auction.ExtensionThreshold)
		require.Equal(t, 30*time.Second, cfg.Auction.MonitoringInterval)
		require.Equal(t, time.Hour, cfg.Payment.PaymentWindow)
		require.Equal(t, 3, cfg.Payment.MaxRetryAttempts)
	})

	t.Run("env_overrides", func(t *testing.T) {
		t.Setenv("PAYMENT_WINDOW_MINUTES", "15")
		t.Setenv("MAX_RETRY_ATTEMPTS", "5")
		t.Setenv("MONITORING_INTERVAL_SECONDS", "10")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 15*time.Minute, cfg.Payment.PaymentWindow)
		require.Equal(t, 5, cfg.Payment.MaxRetryAttempts)
		require.Equal(t, 10*time.Second, cfg.Auction.MonitoringInterval)
	})

	t.Run("invalid_rejected", func(t *testing.T) {
		t.Setenv("MAX_RETRY_ATTEMPTS", "0")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("unparseable_rejected", func(t *testing.T) {
		t.Setenv("MAX_RETRY_ATTEMPTS", "abc")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "MAX_RETRY_ATTEMPTS")
	})

	t.Run("unparseable_float_rejected", func(t *testing.T) {
		t.Setenv("MIN_BID_INCREMENT", "lots")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "MIN_BID_INCREMENT")
	})
}
