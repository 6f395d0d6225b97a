package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"creatorx/internal/market"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, displayName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, hash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}

// Transfer moves Amount from one wallet to another inside a caller's
// transaction.
type Transfer struct {
	From       string
	To         string
	Amount     int64
	DebitKind  models.LedgerKind
	CreditKind models.LedgerKind
	Reference  string
}

// LedgerServicer defines the contract for wallet balances. Credit, Debit and
// Transfer run inside the caller's transaction; the rest open their own.
type LedgerServicer interface {
	Credit(tx *gorm.DB, userID string, amount int64, kind models.LedgerKind, reference string) (*models.LedgerEntry, error)
	Debit(tx *gorm.DB, userID string, amount int64, kind models.LedgerKind, reference string) (*models.LedgerEntry, error)
	Transfer(tx *gorm.DB, t Transfer) error
	Balance(ctx context.Context, userID string) (int64, error)
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	Deposit(ctx context.Context, userID string, amount int64, reference string) (*models.LedgerEntry, error)
	History(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.LedgerEntry], error)
}

// TrustInfo is a user's trust classification derived from their stock's
// market cap. Users without a stock sit in the lowest band.
type TrustInfo struct {
	UserID    string            `json:"user_id"`
	StockID   string            `json:"stock_id,omitempty"`
	MarketCap int64             `json:"market_cap"`
	Level     market.TrustLevel `json:"level"`
}

// StockServicer defines the contract for the stock registry.
type StockServicer interface {
	IssueStock(ctx context.Context, issuerID string, initialPrice, totalShares, initialOffering int64, dividendRate float64) (*models.Stock, error)
	GetStock(ctx context.Context, stockID string) (*models.Stock, error)
	GetStockByIssuer(ctx context.Context, issuerID string) (*models.Stock, error)
	ListStocks(ctx context.Context, tier market.Tier, page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error)
	GetTierProgress(ctx context.Context, stockID string) (*market.UpgradeCheck, error)
	UpgradeTier(ctx context.Context, issuerID string) (*models.Stock, error)
	GetTrades(ctx context.Context, stockID string, side models.TradeSide, page pagination.PageRequest) (*pagination.PageResponse[models.Trade], error)
	GetPriceHistory(ctx context.Context, stockID string, page pagination.PageRequest) (*pagination.PageResponse[models.StockPrice], error)
	GetTrustLevel(ctx context.Context, userID string) (*TrustInfo, error)
}

// BuyResult is the outcome of a primary purchase.
type BuyResult struct {
	Trade   models.Trade   `json:"trade"`
	Holding models.Holding `json:"holding"`
}

// SellResult is the outcome of selling shares back to the issuer.
type SellResult struct {
	Trade           models.Trade `json:"trade"`
	RemainingShares int64        `json:"remaining_shares"`
}

// TradeServicer defines the contract for order execution.
type TradeServicer interface {
	BuyShares(ctx context.Context, buyerID, stockID string, quantity int64) (*BuyResult, error)
	SellShares(ctx context.Context, sellerID, stockID string, quantity int64) (*SellResult, error)
	GetHoldings(ctx context.Context, userID string) ([]models.Holding, error)
}

// PriceChange describes one recomputation.
type PriceChange struct {
	StockID   string          `json:"stock_id"`
	IssuerID  string          `json:"issuer_id"`
	OldPrice  int64           `json:"old_price"`
	NewPrice  int64           `json:"new_price"`
	MarketCap int64           `json:"market_cap"`
	Changed   bool            `json:"changed"`
	Signals   market.Signals  `json:"signals"`
	Factors   []market.Factor `json:"factors"`
}

// RepriceResult summarizes a RecomputeAll run.
type RepriceResult struct {
	Stocks   int           `json:"stocks"`
	Changed  int           `json:"changed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// PricingServicer defines the contract for the pricing engine.
type PricingServicer interface {
	RecomputePrice(ctx context.Context, issuerID string) (*PriceChange, error)
	RecomputeAll(ctx context.Context) (*RepriceResult, error)
	ScheduleReprice(issuerID string)
}

// PostMetricInput is one post's engagement counters from the social feed.
type PostMetricInput struct {
	PostID      string
	AuthorID    string
	Likes       int64
	Comments    int64
	Shares      int64
	PublishedAt time.Time
}

// EngagementServicer ingests feed engagement used by the pricing engine.
type EngagementServicer interface {
	RecordPostMetrics(ctx context.Context, metrics []PostMetricInput) (int, error)
}

// EarningsServicer defines the contract for crediting creator earnings.
type EarningsServicer interface {
	AwardCreatorEarnings(ctx context.Context, creatorID string, amount int64, sourceTag string) (*models.EarningEvent, error)
	GetEarningEvent(ctx context.Context, eventID string) (*models.EarningEvent, error)
}

// DistributionResult is the outcome of paying an earning event's dividends.
type DistributionResult struct {
	EventID      string               `json:"event_id"`
	Status       models.EarningStatus `json:"status"`
	Pool         int64                `json:"pool"`
	Paid         int64                `json:"paid"`
	RoundingLoss int64                `json:"rounding_loss"`
	Recipients   int                  `json:"recipients"`
}

// DividendServicer defines the contract for dividend distribution.
type DividendServicer interface {
	Distribute(ctx context.Context, eventID string) (*DistributionResult, error)
	MarkFailed(ctx context.Context, eventID string, cause error)
	ListDividendsReceived(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.DividendPayout], error)
}

// Notifier delivers per-user dividend alerts.
type Notifier interface {
	NotifyDividend(ctx context.Context, payout *models.DividendPayout, event *models.EarningEvent) error
}

// NotificationServicer stores and lists in-app alerts.
type NotificationServicer interface {
	Notifier
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}
