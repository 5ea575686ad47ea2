package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"auction-house/config"
	auction "auction-house/internal/auctionService"
	model "auction-house/internal/models"
	payment "auction-house/internal/paymentService"
	"auction-house/internal/repository"
	"auction-house/internal/server"
)

// testClock is a hand-settable clock shared by both services
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = at
}

// testEnv wires the full engine against the in-memory store
type testEnv struct {
	router     *gin.Engine
	store      *repository.MemoryStore
	auctionSvc *auction.AuctionService
	paymentSvc *payment.PaymentService
	clock      *testClock
}

// notifierStub satisfies the notifier without side effects
type notifierStub struct{}

func (notifierStub) NotifyWinner(model.Auction, model.PaymentAttempt) {}

// SetupTestEnv initializes the router, services, and store for integration testing.
func SetupTestEnv(start time.Time) *testEnv {
	gin.SetMode(gin.TestMode)

	auctionCfg := config.AuctionConfig{
		MinBidIncrement:    5,
		ExtensionThreshold: time.Minute,
		ExtensionDuration:  time.Minute,
		MonitoringInterval: 30 * time.Second,
	}
	paymentCfg := config.PaymentConfig{
		PaymentWindow:      time.Hour,
		MaxRetryAttempts:   3,
		RetryCheckInterval: 30 * time.Second,
	}

	store := repository.NewMemoryStore()
	clock := &testClock{at: start}

	auctionSvc := auction.NewAuctionService(store, auctionCfg, paymentCfg, notifierStub{})
	auctionSvc.SetClock(clock.Now)
	paymentSvc := payment.NewPaymentService(store, paymentCfg, notifierStub{})
	paymentSvc.SetClock(clock.Now)

	return &testEnv{
		router:     server.SetupRouter(auctionSvc, paymentSvc),
		store:      store,
		auctionSvc: auctionSvc,
		paymentSvc: paymentSvc,
		clock:      clock,
	}
}

// ExecuteRequest executes an HTTP request on the router and parses the response
func (e *testEnv) ExecuteRequest(t *testing.T, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		var err error
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// Data extracts the "data" object from a wrapped JSON response
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return data
}
