package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-house/config"
	auction "auction-house/internal/auctionService"
	"auction-house/internal/notifier"
	payment "auction-house/internal/paymentService"
	"auction-house/internal/repository"
	"auction-house/internal/scheduler"
	"auction-house/internal/server"
	"auction-house/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}

	store, err := openStore(cfg)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"error": err.Error()})
	}

	notify := notifier.NewLogNotifier()
	auctionSvc := auction.NewAuctionService(store, cfg.Auction, cfg.Payment, notify)
	paymentSvc := payment.NewPaymentService(store, cfg.Payment, notify)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tasks scheduler.Group
	tasks.Go(ctx, scheduler.NewPeriodic("expiry-monitor", cfg.Auction.MonitoringInterval, auctionSvc.SweepExpiredAuctions))
	tasks.Go(ctx, scheduler.NewPeriodic("payment-retry", cfg.Payment.RetryCheckInterval, paymentSvc.SweepExpiredAttempts))

	router := server.SetupRouter(auctionSvc, paymentSvc)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		utils.Info("auction server listening", map[string]any{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("server error", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("server shutdown", map[string]any{"error": err.Error()})
	}
	tasks.Wait()
	utils.Info("server stopped", nil)
	os.Exit(0)
}

// openStore picks the MySQL-backed store when a DSN is configured, otherwise
// the in-memory store.
func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.Database.DSN != "" {
		return repository.OpenGormStore(cfg.Database.DSN)
	}
	utils.Warn("DATABASE_DSN not set, using in-memory store", nil)
	return repository.NewMemoryStore(), nil
}
