package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

// Store is the persistence contract required by the auction engine. Every
// mutation runs inside InTx, which provides an atomic scope per unit of work;
// the two List methods are read-only index scans used by the background
// sweeps to discover work (each discovered item is then re-checked under its
// own transaction via the CAS transitions on Tx).
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ListExpiredActiveAuctions(ctx context.Context, now time.Time) ([]model.Auction, error)
	ListExpiredPendingAttempts(ctx context.Context, now time.Time) ([]model.PaymentAttempt, error)
}

// Tx is the transactional view handed to a unit of work. The TryTransition
// methods are compare-and-swap primitives: the write applies only if the
// record's current status still equals `from`, otherwise they report false
// and change nothing. First writer wins; the loser observes false and no-ops.
type Tx interface {
	InsertProduct(p model.Product) error
	GetProduct(productID string) (model.Product, error)

	InsertAuction(a model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	GetAuctionByProduct(productID string) (model.Auction, error)
	TryTransitionAuctionStatus(auctionID string, from, to model.AuctionStatus, mutate func(*model.Auction)) (bool, error)

	InsertBid(b model.Bid) error
	GetBidsRanked(auctionID string) ([]model.Bid, error)

	InsertPaymentAttempt(a model.PaymentAttempt) error
	GetPendingAttempt(auctionID string) (model.PaymentAttempt, error)
	GetAttemptsByAuction(auctionID string) ([]model.PaymentAttempt, error)
	TryTransitionAttemptStatus(attemptID string, from, to model.AttemptStatus, mutate func(*model.PaymentAttempt)) (bool, error)

	InsertTransaction(t model.Transaction) error
	InsertExtension(h model.ExtensionHistory) error
	GetExtensions(auctionID string) ([]model.ExtensionHistory, error)
}

// RankBids orders bids for leader selection: amount descending, then
// timestamp descending. A later bid wins a tie on amount, so a bidder
// re-confirming the same price after a timeout ranks ahead of the stale bid.
func RankBids(bids []model.Bid) []model.Bid {
	ranked := append([]model.Bid(nil), bids...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})
	return ranked
}

// MemoryStore is a concurrency-safe in-memory implementation of Store. A
// single mutex serializes transactions; a snapshot taken at transaction start
// is restored if the unit of work returns an error, so partial writes never
// become visible.
type MemoryStore struct {
	mu         sync.Mutex
	products   map[string]model.Product
	auctions   map[string]model.Auction
	bids       map[string][]model.Bid            // key: auctionID
	attempts   map[string][]model.PaymentAttempt // key: auctionID
	txns       []model.Transaction
	extensions map[string][]model.ExtensionHistory // key: auctionID
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[string]model.Product),
		auctions:   make(map[string]model.Auction),
		bids:       make(map[string][]model.Bid),
		attempts:   make(map[string][]model.PaymentAttempt),
		extensions: make(map[string][]model.ExtensionHistory),
	}
}

// InTx runs fn under the store mutex. On error the pre-transaction snapshot
// is restored.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memoryTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// ListExpiredActiveAuctions returns auctions still Active whose expiry has passed
func (s *MemoryStore) ListExpiredActiveAuctions(ctx context.Context, now time.Time) ([]model.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Auction
	for _, a := range s.auctions {
		if a.Status == model.AuctionActive && !a.ExpiryTime.After(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryTime.Before(out[j].ExpiryTime) })
	return out, nil
}

// ListExpiredPendingAttempts returns payment attempts still Pending whose window has closed
func (s *MemoryStore) ListExpiredPendingAttempts(ctx context.Context, now time.Time) ([]model.PaymentAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.PaymentAttempt
	for _, list := range s.attempts {
		for _, a := range list {
			if a.Status == model.AttemptPending && a.ExpiryTime.Before(now) {
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryTime.Before(out[j].ExpiryTime) })
	return out, nil
}

type memorySnapshot struct {
	products   map[string]model.Product
	auctions   map[string]model.Auction
	bids       map[string][]model.Bid
	attempts   map[string][]model.PaymentAttempt
	txns       []model.Transaction
	extensions map[string][]model.ExtensionHistory
}

func (s *MemoryStore) snapshot() memorySnapshot {
	snap := memorySnapshot{
		products:   make(map[string]model.Product, len(s.products)),
		auctions:   make(map[string]model.Auction, len(s.auctions)),
		bids:       make(map[string][]model.Bid, len(s.bids)),
		attempts:   make(map[string][]model.PaymentAttempt, len(s.attempts)),
		txns:       append([]model.Transaction(nil), s.txns...),
		extensions: make(map[string][]model.ExtensionHistory, len(s.extensions)),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.auctions {
		snap.auctions[k] = v
	}
	for k, v := range s.bids {
		snap.bids[k] = append([]model.Bid(nil), v...)
	}
	for k, v := range s.attempts {
		snap.attempts[k] = append([]model.PaymentAttempt(nil), v...)
	}
	for k, v := range s.extensions {
		snap.extensions[k] = append([]model.ExtensionHistory(nil), v...)
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.products = snap.products
	s.auctions = snap.auctions
	s.bids = snap.bids
	s.attempts = snap.attempts
	s.txns = snap.txns
	s.extensions = snap.extensions
}

// Transactions returns a copy of all settlement records. Intended for tests.
func (s *MemoryStore) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.txns...)
}

// memoryTx operates directly on the store maps; the store mutex is already
// held for the lifetime of the transaction.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) InsertProduct(p model.Product) error {
	if _, ok := t.store.products[p.ProductID]; ok {
		return fmt.Errorf("insert product %s: %w", p.ProductID, auctionerrors.ErrProductExists)
	}
	t.store.products[p.ProductID] = p
	return nil
}

func (t *memoryTx) GetProduct(productID string) (model.Product, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return model.Product{}, fmt.Errorf("get product %s: %w", productID, auctionerrors.ErrProductNotFound)
	}
	return p, nil
}

func (t *memoryTx) InsertAuction(a model.Auction) error {
	t.store.auctions[a.AuctionID] = a
	return nil
}

func (t *memoryTx) GetAuction(auctionID string) (model.Auction, error) {
	a, ok := t.store.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

func (t *memoryTx) GetAuctionByProduct(productID string) (model.Auction, error) {
	for _, a := range t.store.auctions {
		if a.ProductID == productID {
			return a, nil
		}
	}
	return model.Auction{}, fmt.Errorf("get auction for product %s: %w", productID, auctionerrors.ErrAuctionNotFound)
}

// TryTransitionAuctionStatus applies the transition and the optional mutator
// only when the stored status still equals from. from == to is allowed and
// acts as a guarded in-place update (used for leader-pointer and anti-snipe
// writes that require the auction to still be Active).
func (t *memoryTx) TryTransitionAuctionStatus(auctionID string, from, to model.AuctionStatus, mutate func(*model.Auction)) (bool, error) {
	a, ok := t.store.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("transition auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	if mutate != nil {
		mutate(&a)
	}
	t.store.auctions[auctionID] = a
	return true, nil
}

func (t *memoryTx) InsertBid(b model.Bid) error {
	if _, ok := t.store.auctions[b.AuctionID]; !ok {
		return fmt.Errorf("insert bid for auction %s: %w", b.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	t.store.bids[b.AuctionID] = append(t.store.bids[b.AuctionID], b)
	return nil
}

func (t *memoryTx) GetBidsRanked(auctionID string) ([]model.Bid, error) {
	bids, ok := t.store.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return RankBids(bids), nil
}

func (t *memoryTx) InsertPaymentAttempt(a model.PaymentAttempt) error {
	t.store.attempts[a.AuctionID] = append(t.store.attempts[a.AuctionID], a)
	return nil
}

func (t *memoryTx) GetPendingAttempt(auctionID string) (model.PaymentAttempt, error) {
	for _, a := range t.store.attempts[auctionID] {
		if a.Status == model.AttemptPending {
			return a, nil
		}
	}
	return model.PaymentAttempt{}, fmt.Errorf("get pending attempt for auction %s: %w", auctionID, auctionerrors.ErrNoPendingPayment)
}

func (t *memoryTx) GetAttemptsByAuction(auctionID string) ([]model.PaymentAttempt, error) {
	list := append([]model.PaymentAttempt(nil), t.store.attempts[auctionID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].AttemptNumber < list[j].AttemptNumber })
	return list, nil
}

func (t *memoryTx) TryTransitionAttemptStatus(attemptID string, from, to model.AttemptStatus, mutate func(*model.PaymentAttempt)) (bool, error) {
	for auctionID, list := range t.store.attempts {
		for i, a := range list {
			if a.AttemptID != attemptID {
				continue
			}
			if a.Status != from {
				return false, nil
			}
			a.Status = to
			if mutate != nil {
				mutate(&a)
			}
			t.store.attempts[auctionID][i] = a
			return true, nil
		}
	}
	return false, fmt.Errorf("transition attempt %s: %w", attemptID, auctionerrors.ErrNoPendingPayment)
}

func (t *memoryTx) InsertTransaction(txn model.Transaction) error {
	t.store.txns = append(t.store.txns, txn)
	return nil
}

func (t *memoryTx) InsertExtension(h model.ExtensionHistory) error {
	t.store.extensions[h.AuctionID] = append(t.store.extensions[h.AuctionID], h)
	return nil
}

func (t *memoryTx) GetExtensions(auctionID string) ([]model.ExtensionHistory, error) {
	return append([]model.ExtensionHistory(nil), t.store.extensions[auctionID]...), nil
}
