package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/services/auction/helpers"
	"auction-house/utils"
)

type AuctionServiceInterface interface {
	RegisterProduct(ctx context.Context, title, description string, startingPrice float64, expiry time.Time) (model.Product, model.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (model.Bid, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	GetBidsRanked(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetExtensions(ctx context.Context, auctionID string) ([]model.ExtensionHistory, error)
}

type PaymentServiceInterface interface {
	ConfirmPayment(ctx context.Context, productID, userID string, confirmedAmount float64) (model.PaymentAttempt, error)
	GetAttempts(ctx context.Context, auctionID string) ([]model.PaymentAttempt, error)
}

type AuctionHandler struct {
	auctions AuctionServiceInterface
	payments PaymentServiceInterface
}

func NewAuctionHandler(auctions AuctionServiceInterface, payments PaymentServiceInterface) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, payments: payments}
}

// RegisterProductHandler handles POST /products
func (h *AuctionHandler) RegisterProductHandler(c *gin.Context) {
	var req helpers.RegisterProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterProductHandler", err)
		return
	}

	product, auction, err := h.auctions.RegisterProduct(c.Request.Context(), req.Title, req.Description, req.StartingPrice, req.ExpiryTime)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("RegisterProductHandler: failed to register product", map[string]any{
			"title": req.Title,
			"error": err.Error(),
		})
		return
	}

	resp := helpers.RegisterProductResponse{
		ProductID:  product.ProductID,
		AuctionID:  auction.AuctionID,
		Status:     string(auction.Status),
		ExpiryTime: auction.ExpiryTime.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "product registered, auction opened")
	helpers.LogSuccess("RegisterProductHandler", "product registered", map[string]any{
		"product_id": product.ProductID,
		"auction_id": auction.AuctionID,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.auctions.PlaceBid(c.Request.Context(), auctionID, req.BidderID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	auction, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := helpers.AuctionResponse{
		AuctionID:      auction.AuctionID,
		ProductID:      auction.ProductID,
		Status:         string(auction.Status),
		ExpiryTime:     auction.ExpiryTime.UTC().Format(time.RFC3339),
		HighestBidID:   auction.HighestBidID,
		ExtensionCount: auction.ExtensionCount,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auction retrieved successfully")
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bids, err := h.auctions.GetBidsRanked(c.Request.Context(), auctionID)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidsHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.BidResponse{
			BidID:     b.BidID,
			AuctionID: b.AuctionID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetExtensionsHandler handles GET /auctions/:auction_id/extensions
func (h *AuctionHandler) GetExtensionsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	extensions, err := h.auctions.GetExtensions(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetExtensionsHandler: error retrieving extensions", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.ExtensionResponse, 0, len(extensions))
	for _, e := range extensions {
		resp = append(resp, helpers.ExtensionResponse{
			AuctionID:      e.AuctionID,
			ExtendedAt:     e.ExtendedAt.UTC().Format(time.RFC3339),
			PreviousExpiry: e.PreviousExpiry.UTC().Format(time.RFC3339),
			NewExpiry:      e.NewExpiry.UTC().Format(time.RFC3339),
		})
	}
	utils.JSONResponse(c, http.StatusOK, resp, "extensions retrieved successfully")
}

// ConfirmPaymentHandler handles POST /products/:product_id/payments
func (h *AuctionHandler) ConfirmPaymentHandler(c *gin.Context) {
	productID := c.Param("product_id")

	var req helpers.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ConfirmPaymentHandler", err)
		return
	}

	attempt, err := h.payments.ConfirmPayment(c.Request.Context(), productID, req.UserID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		if details, ok := helpers.PaymentAmountDetails(err); ok {
			utils.JSONErrorDetail(c, status, err, message, details)
		} else {
			utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		}
		utils.Error("ConfirmPaymentHandler: failed to confirm payment", map[string]any{
			"product_id": productID,
			"user_id":    req.UserID,
			"error":      err.Error(),
		})
		return
	}

	resp := attemptResponse(attempt)
	utils.JSONResponse(c, http.StatusOK, resp, "payment confirmed successfully")
	helpers.LogSuccess("ConfirmPaymentHandler", "payment confirmed", map[string]any{
		"product_id":     productID,
		"auction_id":     attempt.AuctionID,
		"attempt_number": attempt.AttemptNumber,
	})
}

// GetAttemptsHandler handles GET /auctions/:auction_id/payments
func (h *AuctionHandler) GetAttemptsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	attempts, err := h.payments.GetAttempts(c.Request.Context(), auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAttemptsHandler: error retrieving attempts", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.PaymentAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp = append(resp, attemptResponse(a))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "payment attempts retrieved successfully")
}

func attemptResponse(a model.PaymentAttempt) helpers.PaymentAttemptResponse {
	return helpers.PaymentAttemptResponse{
		AttemptID:       a.AttemptID,
		AuctionID:       a.AuctionID,
		BidderID:        a.BidderID,
		Status:          string(a.Status),
		AttemptNumber:   a.AttemptNumber,
		Amount:          a.Amount,
		ConfirmedAmount: a.ConfirmedAmount,
		ExpiryTime:      a.ExpiryTime.UTC().Format(time.RFC3339),
	}
}
