package helpers

import "time"

// Request/Response DTOs
type RegisterProductRequest struct {
	Title         string    `json:"title" binding:"required"`
	Description   string    `json:"description"`
	StartingPrice float64   `json:"starting_price" binding:"gte=0"`
	ExpiryTime    time.Time `json:"expiry_time" binding:"required"`
}

type RegisterProductResponse struct {
	ProductID  string `json:"product_id"`
	AuctionID  string `json:"auction_id"`
	Status     string `json:"status"`
	ExpiryTime string `json:"expiry_time"`
}

type PlaceBidRequest struct {
	BidderID string  `json:"bidder_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}

type AuctionResponse struct {
	AuctionID      string  `json:"auction_id"`
	ProductID      string  `json:"product_id"`
	Status         string  `json:"status"`
	ExpiryTime     string  `json:"expiry_time"`
	HighestBidID   *string `json:"highest_bid_id,omitempty"`
	ExtensionCount int     `json:"extension_count"`
}

type ConfirmPaymentRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type PaymentAttemptResponse struct {
	AttemptID       string   `json:"attempt_id"`
	AuctionID       string   `json:"auction_id"`
	BidderID        string   `json:"bidder_id"`
	Status          string   `json:"status"`
	AttemptNumber   int      `json:"attempt_number"`
	Amount          float64  `json:"amount"`
	ConfirmedAmount *float64 `json:"confirmed_amount,omitempty"`
	ExpiryTime      string   `json:"expiry_time"`
}

type ExtensionResponse struct {
	AuctionID      string `json:"auction_id"`
	ExtendedAt     string `json:"extended_at"`
	PreviousExpiry string `json:"previous_expiry"`
	NewExpiry      string `json:"new_expiry"`
}
