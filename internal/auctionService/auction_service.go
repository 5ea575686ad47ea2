package auction

import (
	"context"
	"errors"
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

// AuctionService owns the bid ledger, the anti-snipe guard, and the expiry
// monitor sweep that finalizes auctions whose bidding window has closed.
type AuctionService struct {
	store    repository.Store
	cfg      config.AuctionConfig
	payments config.PaymentConfig
	notify   notifier.Notifier
	now      func() time.Time
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(store repository.Store, cfg config.AuctionConfig, payments config.PaymentConfig, n notifier.Notifier) *AuctionService {
	return &AuctionService{
		store:    store,
		cfg:      cfg,
		payments: payments,
		notify:   n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterProduct stores a product and opens its auction in one transaction
func (s *AuctionService) RegisterProduct(ctx context.Context, title, description string, startingPrice float64, expiry time.Time) (models.Product, models.Auction, error) {
	if title == "" {
		return models.Product{}, models.Auction{}, fmt.Errorf("service: %w - missing product title", auctionerrors.ErrInvalidInput)
	}
	if startingPrice < 0 {
		return models.Product{}, models.Auction{}, fmt.Errorf("service: %w - negative starting price", auctionerrors.ErrInvalidInput)
	}
	if !expiry.After(s.now()) {
		return models.Product{}, models.Auction{}, fmt.Errorf("service: %w - expiry must be in the future", auctionerrors.ErrInvalidInput)
	}

	product := models.Product{
		ProductID:     utils.GenerateID(),
		Title:         title,
		Description:   description,
		StartingPrice: startingPrice,
	}
	auction := models.Auction{
		AuctionID:  utils.GenerateID(),
		ProductID:  product.ProductID,
		Status:     models.AuctionActive,
		ExpiryTime: expiry.UTC(),
	}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertProduct(product); err != nil {
			return err
		}
		return tx.InsertAuction(auction)
	})
	if err != nil {
		return models.Product{}, models.Auction{}, fmt.Errorf("service: failed to register product %q: %w", title, err)
	}
	return product, auction, nil
}

// PlaceBid validates and records a bid, updates the leader pointer, and
// applies the anti-snipe extension when the bid lands inside the threshold.
// Bid insertion, leader update, and check-and-extend share one transaction so
// a concurrent finalization can never observe the old expiry after the bid
// is committed.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidInput)
	}
	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidInput)
	}

	now := s.now()
	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}

	var extended bool
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		auction, err := tx.GetAuction(auctionID)
		if err != nil {
			return err
		}
		if auction.Status != models.AuctionActive {
			return fmt.Errorf("auction %s has status %s: %w", auctionID, auction.Status, auctionerrors.ErrAuctionNotOpen)
		}
		if !now.Before(auction.ExpiryTime) {
			return fmt.Errorf("auction %s expired at %s: %w", auctionID, auction.ExpiryTime.Format(time.RFC3339), auctionerrors.ErrAuctionNotOpen)
		}

		if err := s.checkIncrement(tx, auction, amount); err != nil {
			return err
		}
		if err := tx.InsertBid(bid); err != nil {
			return err
		}

		extend := auction.ExpiryTime.Sub(now) <= s.cfg.ExtensionThreshold
		var history models.ExtensionHistory
		ok, err := tx.TryTransitionAuctionStatus(auctionID, models.AuctionActive, models.AuctionActive, func(a *models.Auction) {
			a.HighestBidID = &bid.BidID
			if extend {
				history = models.ExtensionHistory{
					ExtensionID:    utils.GenerateID(),
					AuctionID:      auctionID,
					ExtendedAt:     now,
					PreviousExpiry: a.ExpiryTime,
					NewExpiry:      a.ExpiryTime.Add(s.cfg.ExtensionDuration),
				}
				a.ExpiryTime = history.NewExpiry
				a.ExtensionCount++
			}
		})
		if err != nil {
			return err
		}
		if !ok {
			// Finalized between our read and the guarded write.
			return fmt.Errorf("auction %s was finalized concurrently: %w", auctionID, auctionerrors.ErrAuctionNotOpen)
		}
		if extend {
			if err := tx.InsertExtension(history); err != nil {
				return err
			}
			extended = true
		}
		return nil
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to place bid on auction %s by bidder %s: %w", auctionID, bidderID, err)
	}

	if extended {
		utils.Info("anti-snipe extension applied", map[string]any{
			"auction_id": auctionID,
			"bid_id":     bid.BidID,
		})
	}
	return bid, nil
}

// checkIncrement enforces the minimum-increment rule with exact decimal
// arithmetic. The first bid only has to meet the starting price.
func (s *AuctionService) checkIncrement(tx repository.Tx, auction models.Auction, amount float64) error {
	bidAmount := decimal.NewFromFloat(amount)

	bids, err := tx.GetBidsRanked(auction.AuctionID)
	if errors.Is(err, auctionerrors.ErrNoBids) {
		product, perr := tx.GetProduct(auction.ProductID)
		if perr != nil {
			return perr
		}
		if bidAmount.LessThan(decimal.NewFromFloat(product.StartingPrice)) {
			return fmt.Errorf("bid %.2f is below starting price %.2f: %w", amount, product.StartingPrice, auctionerrors.ErrBidRejected)
		}
		return nil
	}
	if err != nil {
		return err
	}

	leading := decimal.NewFromFloat(bids[0].Amount)
	floor := leading.Add(decimal.NewFromFloat(s.cfg.MinBidIncrement))
	if bidAmount.LessThan(floor) {
		return fmt.Errorf("bid %.2f does not clear current leader %.2f plus increment %.2f: %w",
			amount, bids[0].Amount, s.cfg.MinBidIncrement, auctionerrors.ErrBidRejected)
	}
	return nil
}

// GetAuction returns the auction record by id
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}
	var out models.Auction
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetAuction(auctionID)
		return err
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return out, nil
}

// GetBidsRanked returns the auction's bids in leader order
func (s *AuctionService) GetBidsRanked(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}
	var out []models.Bid
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetBidsRanked(auctionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return out, nil
}

// GetExtensions returns the anti-snipe audit trail for an auction
func (s *AuctionService) GetExtensions(ctx context.Context, auctionID string) ([]models.ExtensionHistory, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}
	var out []models.ExtensionHistory
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetExtensions(auctionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get extensions for auction %s: %w", auctionID, err)
	}
	return out, nil
}

// SweepExpiredAuctions is one tick of the expiry monitor. Each expired Active
// auction is finalized in its own transaction; one auction's failure is
// logged and skipped so the sweep continues. The transition is re-checked via
// CAS inside the transaction, so overlapping sweeps cannot double-process.
func (s *AuctionService) SweepExpiredAuctions(ctx context.Context) {
	now := s.now()
	expired, err := s.store.ListExpiredActiveAuctions(ctx, now)
	if err != nil {
		utils.Error("expiry sweep: failed to list expired auctions", map[string]any{"error": err.Error()})
		return
	}

	for _, a := range expired {
		if ctx.Err() != nil {
			return
		}
		if err := s.finalizeAuction(ctx, a.AuctionID, now); err != nil {
			utils.Error("expiry sweep: failed to finalize auction", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
		}
	}
}

// finalizeAuction moves one expired auction out of Active: to PendingPayment
// with payment attempt #1 when a leader exists, to Failed when no bid was
// ever placed.
func (s *AuctionService) finalizeAuction(ctx context.Context, auctionID string, now time.Time) error {
	var (
		won     models.Auction
		attempt models.PaymentAttempt
		opened  bool
	)

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		auction, err := tx.GetAuction(auctionID)
		if err != nil {
			return err
		}

		// A bid may have extended the expiry after this auction was listed
		// as expired. The extension wins: leave the auction running.
		if auction.ExpiryTime.After(now) {
			return nil
		}

		if auction.HighestBidID == nil {
			// No bids: terminal failure. CAS no-ops if another sweep won.
			_, err := tx.TryTransitionAuctionStatus(auctionID, models.AuctionActive, models.AuctionFailed, nil)
			return err
		}

		bids, err := tx.GetBidsRanked(auctionID)
		if err != nil {
			return err
		}
		leader := bids[0]

		ok, err := tx.TryTransitionAuctionStatus(auctionID, models.AuctionActive, models.AuctionPendingPayment, nil)
		if err != nil {
			return err
		}
		if !ok {
			// Another sweep or a late bid's finalization got here first.
			return nil
		}

		attempt = models.PaymentAttempt{
			AttemptID:     utils.GenerateID(),
			AuctionID:     auctionID,
			BidderID:      leader.BidderID,
			Status:        models.AttemptPending,
			AttemptNumber: 1,
			Amount:        leader.Amount,
			AttemptTime:   now,
			ExpiryTime:    now.Add(s.payments.PaymentWindow),
		}
		if err := tx.InsertPaymentAttempt(attempt); err != nil {
			return err
		}
		won = auction
		opened = true
		return nil
	})
	if err != nil {
		return err
	}

	if opened {
		utils.Info("auction finalized, payment window opened", map[string]any{
			"auction_id":     auctionID,
			"bidder_id":      attempt.BidderID,
			"amount":         attempt.Amount,
			"attempt_number": attempt.AttemptNumber,
		})
		// Best effort; a notification failure never blocks the transition.
		s.notify.NotifyWinner(won, attempt)
	}
	return nil
}

// SetClock overrides the service clock. Intended for tests.
func (s *AuctionService) SetClock(now func() time.Time) {
	s.now = now
}
