package auctionerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrProductNotFound = errors.New("product not found")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrProductExists   = errors.New("product already registered")
)

// Business logic errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrBidRejected    = errors.New("bid amount too low")
	ErrAuctionNotOpen = errors.New("auction is not open for bidding")
)

// Payment errors
var (
	ErrNoPendingPayment       = errors.New("no pending payment attempt")
	ErrPaymentWindowExpired   = errors.New("payment window has expired")
	ErrUnauthorizedPayment    = errors.New("payment not authorized for this user")
	ErrInvalidPaymentAmount   = errors.New("confirmed amount does not match expected amount")
	ErrTransitionPrecondition = errors.New("state transition precondition failed")
)

// InvalidPaymentAmountError carries the expected/confirmed amounts of a
// mismatched confirmation. It unwraps to ErrInvalidPaymentAmount so callers
// can match with errors.Is and recover the payload with errors.As.
type InvalidPaymentAmountError struct {
	Expected  float64
	Confirmed float64
}

func (e *InvalidPaymentAmountError) Error() string {
	return fmt.Sprintf("confirmed amount %.2f does not match expected amount %.2f", e.Confirmed, e.Expected)
}

func (e *InvalidPaymentAmountError) Unwrap() error {
	return ErrInvalidPaymentAmount
}
