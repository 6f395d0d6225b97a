// Package server assembles the market's service graph and its HTTP routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"creatorx/internal/events"
	"creatorx/internal/handlers"
	"creatorx/internal/market"
	"creatorx/internal/middleware"
	"creatorx/internal/services"
	"creatorx/internal/uow"
	"creatorx/internal/worker"

	_ "creatorx/internal/docs" // Import swagger docs
)

// Services is the wired market service graph.
type Services struct {
	Users         services.UserServicer
	Audit         services.AuditServicer
	Ledger        services.LedgerServicer
	Notifications services.NotificationServicer
	Pricing       services.PricingServicer
	Dividends     services.DividendServicer
	Earnings      services.EarningsServicer
	Stocks        services.StockServicer
	Trades        services.TradeServicer
	Engagement    services.EngagementServicer
}

// NewServices wires every service over db. Events go to publisher and
// follow-up work (reprices, dividend runs) to dispatcher.
func NewServices(db *gorm.DB, params market.Params, publisher events.Publisher, dispatcher worker.Dispatcher) *Services {
	unit := uow.New(db)
	s := &Services{
		Users:         services.NewUserService(db),
		Audit:         services.NewAuditService(db),
		Ledger:        services.NewLedgerService(db),
		Notifications: services.NewNotificationService(db),
	}
	s.Pricing = services.NewPricingService(unit, params, publisher, dispatcher)
	s.Dividends = services.NewDividendService(db, s.Ledger, s.Notifications, publisher, s.Pricing)
	s.Earnings = services.NewEarningsService(unit, s.Ledger, s.Dividends, dispatcher)
	s.Stocks = services.NewStockService(unit, publisher)
	s.Trades = services.NewTradeService(unit, s.Ledger, s.Pricing, publisher)
	s.Engagement = services.NewEngagementService(db, s.Pricing)
	return s
}

// RouterConfig carries what the routes need beyond the services.
type RouterConfig struct {
	Market         market.Params
	PipelineAPIKey string
	// Health and Events are optional; their routes are skipped when nil.
	Health *handlers.HealthHandler
	Events http.HandlerFunc
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(svc *Services, cfg RouterConfig) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	stockHandler := handlers.NewStockHandler(svc.Stocks, svc.Audit)
	tradeHandler := handlers.NewTradeHandler(svc.Trades, svc.Audit)
	walletHandler := handlers.NewWalletHandler(svc.Ledger, svc.Dividends)
	marketHandler := handlers.NewMarketHandler(svc.Stocks, cfg.Market)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	pipelineHandler := handlers.NewPipelineHandler(svc.Earnings, svc.Dividends, svc.Ledger, svc.Engagement, svc.Pricing, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.Health != nil {
		router.GET("/api/health", cfg.Health.Health)
	}
	if cfg.Events != nil {
		router.GET("/ws", gin.WrapF(cfg.Events))
	}

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.GET("/profile/stock", stockHandler.GetMyStock)

	// Stock routes
	stocks := protected.Group("/stocks")
	stocks.POST("", stockHandler.IssueStock)
	stocks.GET("", stockHandler.ListStocks)
	stocks.POST("/tier-upgrade", stockHandler.UpgradeTier)
	stocks.GET("/:id", stockHandler.GetStock)
	stocks.GET("/:id/trades", stockHandler.GetTrades)
	stocks.GET("/:id/prices", stockHandler.GetPriceHistory)
	stocks.GET("/:id/tier", stockHandler.GetTierProgress)
	stocks.POST("/:id/buy", tradeHandler.BuyShares)
	stocks.POST("/:id/sell", tradeHandler.SellShares)

	// Portfolio and wallet routes
	protected.GET("/holdings", tradeHandler.GetHoldings)
	protected.GET("/wallet", walletHandler.GetWallet)
	protected.GET("/wallet/entries", walletHandler.GetEntries)
	protected.GET("/dividends", walletHandler.GetDividends)

	// Notification routes
	protected.GET("/notifications", notificationHandler.ListNotifications)
	protected.POST("/notifications/:id/read", notificationHandler.MarkRead)

	// Market reference routes
	protected.GET("/market/tiers", marketHandler.GetTables)
	protected.GET("/market/trust/:userID", marketHandler.GetTrustLevel)

	// Pipeline routes (reward collaborator, payment gateway, feed ingest)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKey))
	pipeline.POST("/earnings", pipelineHandler.AwardEarnings)
	pipeline.GET("/earnings/:id", pipelineHandler.GetEarningEvent)
	pipeline.POST("/earnings/:id/distribute", pipelineHandler.RetryDistribution)
	pipeline.POST("/deposits", pipelineHandler.Deposit)
	pipeline.POST("/post-metrics", pipelineHandler.RecordPostMetrics)
	pipeline.POST("/reprice", pipelineHandler.Reprice)

	return router
}

// cors allows browser clients from any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.PipelineKeyHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
