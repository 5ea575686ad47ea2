package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"auction-house/internal/auctionerrors"
	"auction-house/utils"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrProductExists):
		return http.StatusConflict, "product already registered"
	case errors.Is(err, auctionerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrBidRejected):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionNotOpen):
		return http.StatusConflict, "auction is not open for bidding"
	case errors.Is(err, auctionerrors.ErrNoPendingPayment):
		return http.StatusNotFound, "no pending payment attempt"
	case errors.Is(err, auctionerrors.ErrPaymentWindowExpired):
		return http.StatusGone, "payment window has expired"
	case errors.Is(err, auctionerrors.ErrUnauthorizedPayment):
		return http.StatusForbidden, "payment not authorized for this user"
	case errors.Is(err, auctionerrors.ErrInvalidPaymentAmount):
		return http.StatusUnprocessableEntity, "confirmed amount does not match expected amount"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// PaymentAmountDetails extracts the expected/confirmed payload from an amount
// mismatch, if err carries one.
func PaymentAmountDetails(err error) (gin.H, bool) {
	var mismatch *auctionerrors.InvalidPaymentAmountError
	if errors.As(err, &mismatch) {
		return gin.H{
			"expected_amount":  mismatch.Expected,
			"confirmed_amount": mismatch.Confirmed,
		}, true
	}
	return nil, false
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
