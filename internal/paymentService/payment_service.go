package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"auction-house/config"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/notifier"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// PaymentService resolves payment attempts: synchronous confirmation by the
// winning bidder, and the retry sweep that escalates timed-out attempts to
// the next-ranked bidder or fails the auction.
type PaymentService struct {
	store  repository.Store
	cfg    config.PaymentConfig
	notify notifier.Notifier
	now    func() time.Time
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(store repository.Store, cfg config.PaymentConfig, n notifier.Notifier) *PaymentService {
	return &PaymentService{
		store:  store,
		cfg:    cfg,
		notify: n,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmPayment resolves the current Pending attempt for a product's
// auction. Window, bidder, and amount are checked in that order; a rejected
// confirmation leaves the attempt untouched (a wrong-user or wrong-amount
// call must not consume the legitimate bidder's window). On success the
// attempt, its settlement transaction, and the auction completion commit as
// one unit.
func (s *PaymentService) ConfirmPayment(ctx context.Context, productID, userID string, confirmedAmount float64) (models.PaymentAttempt, error) {
	if productID == "" || userID == "" {
		return models.PaymentAttempt{}, fmt.Errorf("service: %w - missing productID or userID", auctionerrors.ErrInvalidInput)
	}

	now := s.now()
	var resolved models.PaymentAttempt

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		auction, err := tx.GetAuctionByProduct(productID)
		if err != nil {
			return err
		}
		attempt, err := tx.GetPendingAttempt(auction.AuctionID)
		if err != nil {
			return err
		}

		if now.After(attempt.ExpiryTime) {
			// The retry scheduler owns timeout transitions; this call only
			// rejects late confirmations.
			return fmt.Errorf("payment window for attempt %d closed at %s: %w",
				attempt.AttemptNumber, attempt.ExpiryTime.Format(time.RFC3339), auctionerrors.ErrPaymentWindowExpired)
		}
		if userID != attempt.BidderID {
			return fmt.Errorf("user %s is not the winning bidder for auction %s: %w",
				userID, auction.AuctionID, auctionerrors.ErrUnauthorizedPayment)
		}
		if !decimal.NewFromFloat(confirmedAmount).Equal(decimal.NewFromFloat(attempt.Amount)) {
			return fmt.Errorf("confirm payment for auction %s: %w", auction.AuctionID,
				&auctionerrors.InvalidPaymentAmountError{Expected: attempt.Amount, Confirmed: confirmedAmount})
		}

		ok, err := tx.TryTransitionAttemptStatus(attempt.AttemptID, models.AttemptPending, models.AttemptSuccess, func(a *models.PaymentAttempt) {
			a.ConfirmedAmount = &confirmedAmount
		})
		if err != nil {
			return err
		}
		if !ok {
			// The retry sweep failed this attempt between our read and the
			// guarded write. First writer wins.
			return fmt.Errorf("attempt %s already resolved: %w", attempt.AttemptID, auctionerrors.ErrNoPendingPayment)
		}

		if err := tx.InsertTransaction(models.Transaction{
			TransactionID: utils.GenerateID(),
			PaymentID:     attempt.AttemptID,
			Status:        models.TransactionSuccess,
			Amount:        confirmedAmount,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		ok, err = tx.TryTransitionAuctionStatus(auction.AuctionID, models.AuctionPendingPayment, models.AuctionCompleted, nil)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("auction %s no longer pending payment: %w", auction.AuctionID, auctionerrors.ErrTransitionPrecondition)
		}

		attempt.Status = models.AttemptSuccess
		attempt.ConfirmedAmount = &confirmedAmount
		resolved = attempt
		return nil
	})
	if err != nil {
		return models.PaymentAttempt{}, fmt.Errorf("service: failed to confirm payment for product %s by user %s: %w", productID, userID, err)
	}

	utils.Info("payment confirmed, auction completed", map[string]any{
		"product_id":     productID,
		"auction_id":     resolved.AuctionID,
		"bidder_id":      resolved.BidderID,
		"attempt_number": resolved.AttemptNumber,
		"amount":         confirmedAmount,
	})
	return resolved, nil
}

// GetAttempts returns the payment attempt history for an auction
func (s *PaymentService) GetAttempts(ctx context.Context, auctionID string) ([]models.PaymentAttempt, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}
	var out []models.PaymentAttempt
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetAttemptsByAuction(auctionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get attempts for auction %s: %w", auctionID, err)
	}
	return out, nil
}

// SweepExpiredAttempts is one tick of the retry scheduler. Each expired
// Pending attempt is resolved in its own transaction; failures are logged and
// skipped so the sweep continues and the item is retried next tick.
func (s *PaymentService) SweepExpiredAttempts(ctx context.Context) {
	now := s.now()
	expired, err := s.store.ListExpiredPendingAttempts(ctx, now)
	if err != nil {
		utils.Error("retry sweep: failed to list expired attempts", map[string]any{"error": err.Error()})
		return
	}

	for _, a := range expired {
		if ctx.Err() != nil {
			return
		}
		if err := s.resolveExpiredAttempt(ctx, a, now); err != nil {
			utils.Error("retry sweep: failed to resolve attempt", map[string]any{
				"attempt_id": a.AttemptID,
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
		}
	}
}

// resolveExpiredAttempt fails one timed-out attempt and either escalates to
// the next-ranked bidder or fails the auction. The Pending precondition on
// the first write makes the whole unit a no-op when a confirmation raced the
// sweep and won.
func (s *PaymentService) resolveExpiredAttempt(ctx context.Context, expired models.PaymentAttempt, now time.Time) error {
	var (
		auction models.Auction
		next    models.PaymentAttempt
		opened  bool
		failed  bool
	)

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		ok, err := tx.TryTransitionAttemptStatus(expired.AttemptID, models.AttemptPending, models.AttemptFailed, nil)
		if err != nil {
			return err
		}
		if !ok {
			// Confirmed concurrently. Nothing to escalate.
			return nil
		}

		if err := tx.InsertTransaction(models.Transaction{
			TransactionID: utils.GenerateID(),
			PaymentID:     expired.AttemptID,
			Status:        models.TransactionFailed,
			Amount:        expired.Amount,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		// A bidder gets exactly one attempt, successful or not.
		attempts, err := tx.GetAttemptsByAuction(expired.AuctionID)
		if err != nil {
			return err
		}
		attempted := make(map[string]bool, len(attempts))
		for _, a := range attempts {
			attempted[a.BidderID] = true
		}

		bids, err := tx.GetBidsRanked(expired.AuctionID)
		if err != nil {
			return err
		}
		var candidate *models.Bid
		for i := range bids {
			if !attempted[bids[i].BidderID] {
				candidate = &bids[i]
				break
			}
		}

		if expired.AttemptNumber < s.cfg.MaxRetryAttempts && candidate != nil {
			next = models.PaymentAttempt{
				AttemptID:     utils.GenerateID(),
				AuctionID:     expired.AuctionID,
				BidderID:      candidate.BidderID,
				Status:        models.AttemptPending,
				AttemptNumber: expired.AttemptNumber + 1,
				Amount:        candidate.Amount,
				AttemptTime:   now,
				ExpiryTime:    now.Add(s.cfg.PaymentWindow),
			}
			if err := tx.InsertPaymentAttempt(next); err != nil {
				return err
			}
			auction, err = tx.GetAuction(expired.AuctionID)
			if err != nil {
				return err
			}
			opened = true
			return nil
		}

		// Retries exhausted or no remaining bidders: terminal failure.
		_, err = tx.TryTransitionAuctionStatus(expired.AuctionID, models.AuctionPendingPayment, models.AuctionFailed, nil)
		if err != nil {
			return err
		}
		failed = true
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case opened:
		utils.Info("payment attempt escalated to next bidder", map[string]any{
			"auction_id":     next.AuctionID,
			"bidder_id":      next.BidderID,
			"attempt_number": next.AttemptNumber,
			"amount":         next.Amount,
		})
		// Best effort; a notification failure never blocks the escalation.
		s.notify.NotifyWinner(auction, next)
	case failed:
		utils.Warn("auction failed after payment attempts exhausted", map[string]any{
			"auction_id":      expired.AuctionID,
			"last_attempt":    expired.AttemptNumber,
			"max_retries":     s.cfg.MaxRetryAttempts,
			"last_bidder_id":  expired.BidderID,
			"expected_amount": expired.Amount,
		})
	}
	return nil
}

// SetClock overrides the service clock. Intended for tests.
func (s *PaymentService) SetClock(now func() time.Time) {
	s.now = now
}
