package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// GormStore implements Store on MySQL via GORM. Each InTx runs a database
// transaction; the CAS transitions take a row lock (SELECT ... FOR UPDATE)
// and re-check the status precondition under that lock.
type GormStore struct {
	db *gorm.DB
}

// OpenGormStore connects to MySQL and migrates the auction schema
func OpenGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
		// Needed so driver duplicate-key errors surface as
		// gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Auction{},
		&model.Bid{},
		&model.PaymentAttempt{},
		&model.ExtensionHistory{},
		&model.Transaction{},
	); err != nil {
		return nil, fmt.Errorf("migrate auction schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm connection. Intended for tests.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) ListExpiredActiveAuctions(ctx context.Context, now time.Time) ([]model.Auction, error) {
	var out []model.Auction
	err := s.db.WithContext(ctx).
		Where("status = ? AND expiry_time <= ?", model.AuctionActive, now).
		Order("expiry_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list expired active auctions: %w", err)
	}
	return out, nil
}

func (s *GormStore) ListExpiredPendingAttempts(ctx context.Context, now time.Time) ([]model.PaymentAttempt, error) {
	var out []model.PaymentAttempt
	err := s.db.WithContext(ctx).
		Where("status = ? AND expiry_time < ?", model.AttemptPending, now).
		Order("expiry_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list expired pending attempts: %w", err)
	}
	return out, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) InsertProduct(p model.Product) error {
	if err := t.db.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert product %s: %w", p.ProductID, auctionerrors.ErrProductExists)
		}
		return fmt.Errorf("insert product %s: %w", p.ProductID, err)
	}
	return nil
}

func (t *gormTx) GetProduct(productID string) (model.Product, error) {
	var p model.Product
	if err := t.db.First(&p, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Product{}, fmt.Errorf("get product %s: %w", productID, auctionerrors.ErrProductNotFound)
		}
		return model.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	return p, nil
}

func (t *gormTx) InsertAuction(a model.Auction) error {
	if err := t.db.Create(&a).Error; err != nil {
		return fmt.Errorf("insert auction %s: %w", a.AuctionID, err)
	}
	return nil
}

func (t *gormTx) GetAuction(auctionID string) (model.Auction, error) {
	var a model.Auction
	if err := t.db.First(&a, "auction_id = ?", auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

func (t *gormTx) GetAuctionByProduct(productID string) (model.Auction, error) {
	var a model.Auction
	if err := t.db.First(&a, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Auction{}, fmt.Errorf("get auction for product %s: %w", productID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("get auction for product %s: %w", productID, err)
	}
	return a, nil
}

func (t *gormTx) TryTransitionAuctionStatus(auctionID string, from, to model.AuctionStatus, mutate func(*model.Auction)) (bool, error) {
	var a model.Auction
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "auction_id = ?", auctionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("transition auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return false, fmt.Errorf("transition auction %s: %w", auctionID, err)
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	if mutate != nil {
		mutate(&a)
	}
	if err := t.db.Save(&a).Error; err != nil {
		return false, fmt.Errorf("transition auction %s: %w", auctionID, err)
	}
	return true, nil
}

func (t *gormTx) InsertBid(b model.Bid) error {
	if err := t.db.Create(&b).Error; err != nil {
		return fmt.Errorf("insert bid %s: %w", b.BidID, err)
	}
	return nil
}

func (t *gormTx) GetBidsRanked(auctionID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := t.db.Where("auction_id = ?", auctionID).
		Order("amount DESC, created_at DESC").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

func (t *gormTx) InsertPaymentAttempt(a model.PaymentAttempt) error {
	if err := t.db.Create(&a).Error; err != nil {
		return fmt.Errorf("insert payment attempt %s: %w", a.AttemptID, err)
	}
	return nil
}

func (t *gormTx) GetPendingAttempt(auctionID string) (model.PaymentAttempt, error) {
	var a model.PaymentAttempt
	err := t.db.First(&a, "auction_id = ? AND status = ?", auctionID, model.AttemptPending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.PaymentAttempt{}, fmt.Errorf("get pending attempt for auction %s: %w", auctionID, auctionerrors.ErrNoPendingPayment)
		}
		return model.PaymentAttempt{}, fmt.Errorf("get pending attempt for auction %s: %w", auctionID, err)
	}
	return a, nil
}

func (t *gormTx) GetAttemptsByAuction(auctionID string) ([]model.PaymentAttempt, error) {
	var out []model.PaymentAttempt
	err := t.db.Where("auction_id = ?", auctionID).
		Order("attempt_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("get attempts for auction %s: %w", auctionID, err)
	}
	return out, nil
}

func (t *gormTx) TryTransitionAttemptStatus(attemptID string, from, to model.AttemptStatus, mutate func(*model.PaymentAttempt)) (bool, error) {
	var a model.PaymentAttempt
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "attempt_id = ?", attemptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("transition attempt %s: %w", attemptID, auctionerrors.ErrNoPendingPayment)
		}
		return false, fmt.Errorf("transition attempt %s: %w", attemptID, err)
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	if mutate != nil {
		mutate(&a)
	}
	if err := t.db.Save(&a).Error; err != nil {
		return false, fmt.Errorf("transition attempt %s: %w", attemptID, err)
	}
	return true, nil
}

func (t *gormTx) InsertTransaction(txn model.Transaction) error {
	if err := t.db.Create(&txn).Error; err != nil {
		return fmt.Errorf("insert transaction %s: %w", txn.TransactionID, err)
	}
	return nil
}

func (t *gormTx) InsertExtension(h model.ExtensionHistory) error {
	if err := t.db.Create(&h).Error; err != nil {
		return fmt.Errorf("insert extension %s: %w", h.ExtensionID, err)
	}
	return nil
}

func (t *gormTx) GetExtensions(auctionID string) ([]model.ExtensionHistory, error) {
	var out []model.ExtensionHistory
	err := t.db.Where("auction_id = ?", auctionID).
		Order("extended_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("get extensions for auction %s: %w", auctionID, err)
	}
	return out, nil
}
