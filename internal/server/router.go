package server

import (
	"github.com/gin-gonic/gin"

	handler "auction-house/services/auction/handler"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctions handler.AuctionServiceInterface, payments handler.PaymentServiceInterface) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctions, payments)

	products := router.Group("/products")
	{
		products.POST("", auctionHandler.RegisterProductHandler)
		products.POST("/:product_id/payments", auctionHandler.ConfirmPaymentHandler)
	}

	auctionRoutes := router.Group("/auctions")
	{
		auctionRoutes.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctionRoutes.POST("/:auction_id/bids", auctionHandler.PlaceBidHandler)
		auctionRoutes.GET("/:auction_id/bids", auctionHandler.GetBidsHandler)
		auctionRoutes.GET("/:auction_id/extensions", auctionHandler.GetExtensionsHandler)
		auctionRoutes.GET("/:auction_id/payments", auctionHandler.GetAttemptsHandler)
	}

	return router
}
