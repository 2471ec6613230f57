package server

import (
	"net/http"

	"auction-marketplace/internal/auth"
	"auction-marketplace/internal/metrics"
	model "auction-marketplace/internal/models"
	accounthandler "auction-marketplace/services/account/handler"
	biddinghandler "auction-marketplace/services/bidding/handler"
	paymenthandler "auction-marketplace/services/payment/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer drives
type Dependencies struct {
	Bidding  biddinghandler.BiddingServiceInterface
	Payments paymenthandler.PaymentServiceInterface
	Accounts accounthandler.AccountServiceInterface
	Inbox    accounthandler.InboxInterface
	Tokens   *auth.TokenIssuer

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(TracingMiddleware)
	if deps.Metrics != nil {
		router.Use(MetricsMiddleware(deps.Metrics))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	biddingHandler := biddinghandler.NewBiddingHandler(deps.Bidding)
	paymentHandler := paymenthandler.NewPaymentHandler(deps.Payments)
	accountHandler := accounthandler.NewAccountHandler(deps.Accounts, deps.Inbox)

	authn := JWTAuth(deps.Tokens)
	admin := RequireRole(string(model.RoleAdmin))

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", accountHandler.RegisterHandler)
		authRoutes.POST("/login", accountHandler.LoginHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/winning", biddingHandler.GetWinningBidHandler)

		auctions.POST("/:auction_id/bids", authn, biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/invoice", authn, biddingHandler.GetInvoiceHandler)
		auctions.POST("/:auction_id/payments", authn, paymentHandler.SubmitPaymentHandler)
		auctions.GET("/:auction_id/payment", authn, paymentHandler.GetAuctionPaymentHandler)

		auctions.POST("", authn, admin, biddingHandler.CreateAuctionHandler)
		auctions.POST("/:auction_id/end", authn, admin, biddingHandler.CloseAuctionHandler)
		auctions.POST("/:auction_id/cancel", authn, admin, biddingHandler.CancelAuctionHandler)
		auctions.POST("/:auction_id/archive", authn, admin, biddingHandler.ArchiveAuctionHandler)
		auctions.POST("/:auction_id/invoice/regenerate", authn, admin, biddingHandler.RegenerateInvoiceHandler)
	}

	payments := router.Group("/payments", authn)
	{
		payments.GET("/:payment_id", paymentHandler.GetPaymentHandler)
		payments.POST("/:payment_id/verify", admin, paymentHandler.VerifyPaymentHandler)
	}

	adminRoutes := router.Group("/admin", authn, admin)
	{
		adminRoutes.GET("/payments", paymentHandler.ListPaymentsHandler)
		adminRoutes.POST("/sweep", biddingHandler.SweepHandler)
	}

	users := router.Group("/users/me", authn)
	{
		users.GET("", accountHandler.MeHandler)
		users.GET("/auctions", biddingHandler.GetMyAuctionsHandler)
	}

	notifications := router.Group("/notifications", authn)
	{
		notifications.GET("", accountHandler.ListNotificationsHandler)
		notifications.POST("/:notification_id/read", accountHandler.MarkNotificationReadHandler)
	}

	return router
}
