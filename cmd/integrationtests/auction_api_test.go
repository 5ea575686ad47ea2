package integrationtests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "auction-house/internal/models"
)

// Full happy path: register, bid, expire, confirm payment.
func TestAuctionLifecycle_Confirmed(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := SetupTestEnv(start)

	resp, w := env.ExecuteRequest(t, http.MethodPost, "/products", map[string]any{
		"title":          "vintage radio",
		"description":    "a radio",
		"starting_price": 50,
		"expiry_time":    start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	productID := Data(t, resp)["product_id"].(string)
	auctionID := Data(t, resp)["auction_id"].(string)

	bidsURL := fmt.Sprintf("/auctions/%s/bids", auctionID)
	_, w = env.ExecuteRequest(t, http.MethodPost, bidsURL, map[string]any{"bidder_id": "user1", "amount": 100})
	require.Equal(t, http.StatusCreated, w.Code)
	_, w = env.ExecuteRequest(t, http.MethodPost, bidsURL, map[string]any{"bidder_id": "user2", "amount": 150})
	require.Equal(t, http.StatusCreated, w.Code)

	// Undercutting the leader is rejected.
	_, w = env.ExecuteRequest(t, http.MethodPost, bidsURL, map[string]any{"bidder_id": "user3", "amount": 151})
	require.Equal(t, http.StatusConflict, w.Code)

	// Expire the bidding window and run the monitor tick.
	env.clock.Set(start.Add(2 * time.Hour))
	env.auctionSvc.SweepExpiredAuctions(context.Background())

	resp, w = env.ExecuteRequest(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(model.AuctionPendingPayment), Data(t, resp)["status"])

	// The wrong user cannot take the window.
	payURL := fmt.Sprintf("/products/%s/payments", productID)
	_, w = env.ExecuteRequest(t, http.MethodPost, payURL, map[string]any{"user_id": "user1", "amount": 150})
	require.Equal(t, http.StatusForbidden, w.Code)

	// A mismatched amount reports the expected/confirmed payload.
	resp, w = env.ExecuteRequest(t, http.MethodPost, payURL, map[string]any{"user_id": "user2", "amount": 149})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	details := resp["details"].(map[string]any)
	require.Equal(t, 150.0, details["expected_amount"])

	// The winning bidder confirms the exact amount.
	resp, w = env.ExecuteRequest(t, http.MethodPost, payURL, map[string]any{"user_id": "user2", "amount": 150})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(model.AttemptSuccess), Data(t, resp)["status"])

	resp, w = env.ExecuteRequest(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(model.AuctionCompleted), Data(t, resp)["status"])

	// The settlement trail holds exactly one successful transaction.
	txns := env.store.Transactions()
	require.Len(t, txns, 1)
	require.Equal(t, model.TransactionSuccess, txns[0].Status)
}

// Escalation path: every payment window times out, the auction fails.
func TestAuctionLifecycle_EscalationToFailure(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := SetupTestEnv(start)
	ctx := context.Background()

	resp, w := env.ExecuteRequest(t, http.MethodPost, "/products", map[string]any{
		"title":          "grandfather clock",
		"starting_price": 50,
		"expiry_time":    start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	auctionID := Data(t, resp)["auction_id"].(string)

	bidsURL := fmt.Sprintf("/auctions/%s/bids", auctionID)
	_, w = env.ExecuteRequest(t, http.MethodPost, bidsURL, map[string]any{"bidder_id": "user1", "amount": 100})
	require.Equal(t, http.StatusCreated, w.Code)
	_, w = env.ExecuteRequest(t, http.MethodPost, bidsURL, map[string]any{"bidder_id": "user2", "amount": 150})
	require.Equal(t, http.StatusCreated, w.Code)

	env.clock.Set(start.Add(2 * time.Hour))
	env.auctionSvc.SweepExpiredAuctions(ctx)

	// user2's window times out, escalating to user1; then user1's does too.
	env.clock.Set(start.Add(4 * time.Hour))
	env.paymentSvc.SweepExpiredAttempts(ctx)
	env.clock.Set(start.Add(6 * time.Hour))
	env.paymentSvc.SweepExpiredAttempts(ctx)

	resp, w = env.ExecuteRequest(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(model.AuctionFailed), Data(t, resp)["status"])

	resp, w = env.ExecuteRequest(t, http.MethodGet, fmt.Sprintf("/auctions/%s/payments", auctionID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	attempts := resp["data"].([]any)
	require.Len(t, attempts, 2)
	first := attempts[0].(map[string]any)
	second := attempts[1].(map[string]any)
	require.Equal(t, "user2", first["bidder_id"])
	require.Equal(t, 150.0, first["amount"])
	require.Equal(t, "user1", second["bidder_id"])
	require.Equal(t, 100.0, second["amount"])

	txns := env.store.Transactions()
	require.Len(t, txns, 2)
	for _, txn := range txns {
		require.Equal(t, model.TransactionFailed, txn.Status)
	}
}

// Anti-snipe path: a bid close to expiry pushes the close back and the
// extension shows up in the audit trail.
func TestAuctionLifecycle_AntiSnipe(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := SetupTestEnv(start)
	ctx := context.Background()

	expiry := start.Add(10 * time.Minute)
	resp, w := env.ExecuteRequest(t, http.MethodPost, "/products", map[string]any{
		"title":          "pocket watch",
		"starting_price": 20,
		"expiry_time":    expiry.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	auctionID := Data(t, resp)["auction_id"].(string)
	bidsURL := fmt.Sprintf("/auctions/%s/bids", auctionID)

	// 30 seconds before close: inside the one minute threshold.
	env.clock.Set(expiry.Add(-30 * time.Second))
	_, w = env.ExecuteRequest(t, http.MethodPost, bidsURL, map[string]any{"bidder_id": "user1", "amount": 120})
	require.Equal(t, http.StatusCreated, w.Code)

	resp, w = env.ExecuteRequest(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1.0, Data(t, resp)["extension_count"])
	require.Equal(t, expiry.Add(time.Minute).Format(time.RFC3339), Data(t, resp)["expiry_time"])

	resp, w = env.ExecuteRequest(t, http.MethodGet, fmt.Sprintf("/auctions/%s/extensions", auctionID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	extensions := resp["data"].([]any)
	require.Len(t, extensions, 1)
	ext := extensions[0].(map[string]any)
	require.Equal(t, expiry.Format(time.RFC3339), ext["previous_expiry"])
	require.Equal(t, expiry.Add(time.Minute).Format(time.RFC3339), ext["new_expiry"])

	// A sweep at the original expiry no longer finalizes the auction.
	env.clock.Set(expiry.Add(time.Second))
	env.auctionSvc.SweepExpiredAuctions(ctx)

	resp, w = env.ExecuteRequest(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(model.AuctionActive), Data(t, resp)["status"])
}

// An auction nobody bids on expires straight to Failed.
func TestAuctionLifecycle_NoBids(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := SetupTestEnv(start)

	resp, w := env.ExecuteRequest(t, http.MethodPost, "/products", map[string]any{
		"title":          "dusty lamp",
		"starting_price": 5,
		"expiry_time":    start.Add(time.Minute).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	auctionID := Data(t, resp)["auction_id"].(string)

	env.clock.Set(start.Add(2 * time.Minute))
	env.auctionSvc.SweepExpiredAuctions(context.Background())

	resp, w = env.ExecuteRequest(t, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, string(model.AuctionFailed), Data(t, resp)["status"])
	require.Empty(t, env.store.Transactions())
}
