package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"auction-house/config"
	auction "auction-house/internal/auctionService"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
)

var benchAuctionCfg = config.AuctionConfig{
	MinBidIncrement:    1,
	ExtensionThreshold: time.Minute,
	ExtensionDuration:  time.Minute,
	MonitoringInterval: 30 * time.Second,
}

var benchPaymentCfg = config.PaymentConfig{
	PaymentWindow:      time.Hour,
	MaxRetryAttempts:   3,
	RetryCheckInterval: 30 * time.Second,
}

type noopNotifier struct{}

func (noopNotifier) NotifyWinner(model.Auction, model.PaymentAttempt) {}

// Benchmark 1: PlaceBid - isolated auctions (low contention)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := auction.NewAuctionService(store, benchAuctionCfg, benchPaymentCfg, noopNotifier{})

	auctionIDs := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		_, a, err := svc.RegisterProduct(ctx, fmt.Sprintf("item_%d", i), "independent benchmark item", 50, time.Now().UTC().Add(24*time.Hour))
		if err != nil {
			b.Fatalf("failed to register product: %v", err)
		}
		auctionIDs[i] = a.AuctionID
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		userID := fmt.Sprintf("user_%d", i)
		bidAmount := float64(50 + rand.Intn(100))
		if _, err := svc.PlaceBid(ctx, auctionIDs[i], userID, bidAmount); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - shared auction (high contention)
func Benchmark_PlaceBid_ConcurrentSharedAuction(b *testing.B) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := auction.NewAuctionService(store, benchAuctionCfg, benchPaymentCfg, noopNotifier{})

	_, shared, err := svc.RegisterProduct(ctx, "high-contention item", "many users bidding concurrently", 50, time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		b.Fatalf("failed to register product: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 50

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := fmt.Sprintf("user_parallel_%d", rnd.Int())

			// Monotonically raise the bid so most attempts clear the leader.
			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
			_, _ = svc.PlaceBid(ctx, shared.AuctionID, userID, float64(nextBid))
		}
	})
}

// Benchmark 3: expiry sweep over a batch of expired auctions
func Benchmark_SweepExpiredAuctions(b *testing.B) {
	ctx := context.Background()

	for _, size := range []int{10, 100} {
		b.Run(fmt.Sprintf("auctions_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				store := repository.NewMemoryStore()
				svc := auction.NewAuctionService(store, benchAuctionCfg, benchPaymentCfg, noopNotifier{})
				start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
				svc.SetClock(func() time.Time { return start })

				for j := 0; j < size; j++ {
					_, a, err := svc.RegisterProduct(ctx, fmt.Sprintf("item_%d", j), "sweep benchmark item", 10, start.Add(time.Hour))
					if err != nil {
						b.Fatalf("failed to register product: %v", err)
					}
					if _, err := svc.PlaceBid(ctx, a.AuctionID, fmt.Sprintf("user_%d", j), 20); err != nil {
						b.Fatalf("failed to place bid: %v", err)
					}
				}
				svc.SetClock(func() time.Time { return start.Add(2 * time.Hour) })
				b.StartTimer()

				svc.SweepExpiredAuctions(ctx)
			}
		})
	}
}
