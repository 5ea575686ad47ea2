package models

import "time"

// AuctionStatus is the lifecycle state of an auction. Status only moves
// forward: Active -> PendingPayment -> Completed, or Active/PendingPayment -> Failed.
type AuctionStatus string

const (
	AuctionActive         AuctionStatus = "ACTIVE"
	AuctionPendingPayment AuctionStatus = "PENDING_PAYMENT"
	AuctionCompleted      AuctionStatus = "COMPLETED"
	AuctionFailed         AuctionStatus = "FAILED"
)

// AttemptStatus is the lifecycle state of a payment attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "PENDING"
	AttemptSuccess AttemptStatus = "SUCCESS"
	AttemptFailed  AttemptStatus = "FAILED"
)

// TransactionStatus records how a payment attempt settled.
type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// Product represents an item put up for auction
type Product struct {
	ProductID     string  `json:"product_id" gorm:"primaryKey;size:36"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	StartingPrice float64 `json:"starting_price"`
}

// Auction tracks the bidding lifecycle for a single product. HighestBidID is
// a back-reference into the bid ledger; once set it never regresses to a
// lower-amount bid.
type Auction struct {
	AuctionID      string        `json:"auction_id" gorm:"primaryKey;size:36"`
	ProductID      string        `json:"product_id" gorm:"index;size:36"`
	Status         AuctionStatus `json:"status" gorm:"index;size:20"`
	ExpiryTime     time.Time     `json:"expiry_time" gorm:"index"`
	HighestBidID   *string       `json:"highest_bid_id,omitempty" gorm:"size:36"`
	ExtensionCount int           `json:"extension_count"`
}

// Bid is an immutable append-only record of a user's bid on an auction
type Bid struct {
	BidID     string    `json:"bid_id" gorm:"primaryKey;size:36"`
	AuctionID string    `json:"auction_id" gorm:"index;size:36"`
	BidderID  string    `json:"bidder_id" gorm:"size:36"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentAttempt is one payment window granted to a bidder. At most one
// attempt per auction is Pending at any time; AttemptNumber is contiguous
// starting at 1.
type PaymentAttempt struct {
	AttemptID       string        `json:"attempt_id" gorm:"primaryKey;size:36"`
	AuctionID       string        `json:"auction_id" gorm:"index;size:36"`
	BidderID        string        `json:"bidder_id" gorm:"size:36"`
	Status          AttemptStatus `json:"status" gorm:"index;size:20"`
	AttemptNumber   int           `json:"attempt_number"`
	Amount          float64       `json:"amount"`
	ConfirmedAmount *float64      `json:"confirmed_amount,omitempty"`
	AttemptTime     time.Time     `json:"attempt_time"`
	ExpiryTime      time.Time     `json:"expiry_time" gorm:"index"`
}

// ExtensionHistory is an audit row written whenever the anti-snipe guard
// pushes an auction's expiry back.
type ExtensionHistory struct {
	ExtensionID    string    `json:"extension_id" gorm:"primaryKey;size:36"`
	AuctionID      string    `json:"auction_id" gorm:"index;size:36"`
	ExtendedAt     time.Time `json:"extended_at"`
	PreviousExpiry time.Time `json:"previous_expiry"`
	NewExpiry      time.Time `json:"new_expiry"`
}

// Transaction is an immutable settlement record for a resolved payment attempt
type Transaction struct {
	TransactionID string            `json:"transaction_id" gorm:"primaryKey;size:36"`
	PaymentID     string            `json:"payment_id" gorm:"index;size:36"`
	Status        TransactionStatus `json:"status" gorm:"size:20"`
	Amount        float64           `json:"amount"`
	CreatedAt     time.Time         `json:"created_at"`
}
