package services

import (
	"context"
	"errors"
	"math/bits"
	"time"

	"gorm.io/gorm"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/events"
	"creatorx/internal/logger"
	"creatorx/internal/market"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
	"creatorx/internal/uow"
)

// stockService owns the stock registry: issuance, tiers, and read models.
type stockService struct {
	db        *gorm.DB
	uow       *uow.UnitOfWork
	publisher events.Publisher
	now       func() time.Time
}

// NewStockService creates a new StockServicer.
func NewStockService(u *uow.UnitOfWork, publisher events.Publisher) StockServicer {
	return &stockService{db: u.DB(), uow: u, publisher: publisher, now: func() time.Time { return time.Now().UTC() }}
}

// IssueStock opens a primary offering for the issuer, creating the stock on
// first issuance and reissuing it once the previous offering is sold out.
func (s *stockService) IssueStock(ctx context.Context, issuerID string, initialPrice, totalShares, initialOffering int64, dividendRate float64) (*models.Stock, error) {
	switch {
	case issuerID == "":
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "issuer id is required")
	case initialPrice < 1:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial price must be at least 1")
	case totalShares < 1:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "total shares must be at least 1")
	case initialOffering < 1 || initialOffering > totalShares:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial offering must be between 1 and total shares")
	case dividendRate < 0 || dividendRate > 1:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "dividend rate must be between 0 and 1")
	}
	marketCap, ok := mulInt64(initialPrice, totalShares)
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial price is too large")
	}

	var stock models.Stock
	var created bool
	err := s.uow.Do(ctx, []string{uow.IssuerKey(issuerID)}, func(tx *gorm.DB) error {
		err := uow.ForUpdate(tx).Where("issuer_id = ?", issuerID).First(&stock).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		exists := err == nil

		tier := market.TierBronze
		if exists {
			tier = stock.Tier
		}
		if totalShares > market.TierMaxShares(tier) {
			return apperrors.ErrTierCapExceeded
		}

		now := s.now()
		if !exists {
			stock = models.Stock{
				IssuerID:        issuerID,
				SharePrice:      initialPrice,
				PreviousPrice:   initialPrice,
				TotalShares:     totalShares,
				AvailableShares: initialOffering,
				DividendRate:    dividendRate,
				Tier:            market.TierBronze,
				MarketCap:       marketCap,
				IssueCount:      1,
				LastIssuedAt:    now,
			}
			if err := tx.Create(&stock).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			created = true
			return nil
		}

		if stock.OfferingRemaining() > 0 {
			return apperrors.ErrAlreadyIssued
		}

		// Outstanding holdings survive a reissue, so the new offering is
		// released on top of the shares already issued.
		available := stock.IssuedShares + initialOffering
		if available > totalShares {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "total shares must cover outstanding shares plus the new offering")
		}

		updates := map[string]any{
			"share_price":      initialPrice,
			"previous_price":   initialPrice,
			"total_shares":     totalShares,
			"available_shares": available,
			"dividend_rate":    dividendRate,
			"market_cap":       marketCap,
			"issue_count":      gorm.Expr("issue_count + 1"),
			"last_issued_at":   now,
		}
		if err := tx.Model(&stock).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.First(&stock, "id = ?", stock.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("stock issued",
		"stock_id", stock.ID,
		"issuer_id", issuerID,
		"created", created,
		"price", stock.SharePrice,
		"total_shares", stock.TotalShares,
		"available_shares", stock.AvailableShares,
	)
	s.publisher.Publish(events.TopicStockNew, stock)
	return &stock, nil
}

// GetStock retrieves a stock by ID.
func (s *stockService) GetStock(ctx context.Context, stockID string) (*models.Stock, error) {
	return findStock(s.db.WithContext(ctx), "id = ?", stockID)
}

// GetStockByIssuer retrieves the issuer's stock.
func (s *stockService) GetStockByIssuer(ctx context.Context, issuerID string) (*models.Stock, error) {
	return findStock(s.db.WithContext(ctx), "issuer_id = ?", issuerID)
}

func findStock(db *gorm.DB, query string, arg string) (*models.Stock, error) {
	var stock models.Stock
	if err := db.Where(query, arg).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}

// ListStocks returns stocks ordered by market cap, largest first. A non-empty
// tier restricts the listing to that tier.
func (s *stockService) ListStocks(ctx context.Context, tier market.Tier, page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)
	if tier != "" {
		db = db.Where("tier = ?", tier)
	}

	var totalItems int64
	if err := db.Model(&models.Stock{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var stocks []models.Stock
	if err := db.Order("market_cap DESC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(stocks, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTierProgress reports how close a stock is to its next tier.
func (s *stockService) GetTierProgress(ctx context.Context, stockID string) (*market.UpgradeCheck, error) {
	stock, err := s.GetStock(ctx, stockID)
	if err != nil {
		return nil, err
	}
	check := market.CanUpgradeTier(stock.Tier, stock.ShareholderCount, stock.TransactionCount)
	return &check, nil
}

// UpgradeTier promotes the issuer's stock to the next tier when it meets
// the thresholds.
func (s *stockService) UpgradeTier(ctx context.Context, issuerID string) (*models.Stock, error) {
	var stock models.Stock
	err := s.uow.Do(ctx, []string{uow.IssuerKey(issuerID)}, func(tx *gorm.DB) error {
		if err := uow.ForUpdate(tx).Where("issuer_id = ?", issuerID).First(&stock).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrStockNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		check := market.CanUpgradeTier(stock.Tier, stock.ShareholderCount, stock.TransactionCount)
		if !check.CanUpgrade {
			return apperrors.ErrTierUpgradeUnavailable
		}

		if err := tx.Model(&stock).Update("tier", check.NextTier).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		stock.Tier = check.NextTier
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("stock tier upgraded", "stock_id", stock.ID, "issuer_id", issuerID, "tier", stock.Tier)
	return &stock, nil
}

// GetTrades returns a stock's trades, newest first. A non-empty side keeps
// only buys or only sells.
func (s *stockService) GetTrades(ctx context.Context, stockID string, side models.TradeSide, page pagination.PageRequest) (*pagination.PageResponse[models.Trade], error) {
	if _, err := s.GetStock(ctx, stockID); err != nil {
		return nil, err
	}
	page.Defaults()
	db := s.db.WithContext(ctx).Where("stock_id = ?", stockID)
	if side != "" {
		db = db.Where("side = ?", side)
	}

	var totalItems int64
	if err := db.Model(&models.Trade{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trades []models.Trade
	if err := db.
		Order("created_at DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(trades, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPriceHistory returns a stock's price changes, newest first.
func (s *stockService) GetPriceHistory(ctx context.Context, stockID string, page pagination.PageRequest) (*pagination.PageResponse[models.StockPrice], error) {
	if _, err := s.GetStock(ctx, stockID); err != nil {
		return nil, err
	}
	page.Defaults()
	db := s.db.WithContext(ctx)

	var totalItems int64
	if err := db.Model(&models.StockPrice{}).Where("stock_id = ?", stockID).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var prices []models.StockPrice
	if err := db.Where("stock_id = ?", stockID).
		Order("recorded_at DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&prices).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(prices, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTrustLevel classifies a user by their stock's market cap.
func (s *stockService) GetTrustLevel(ctx context.Context, userID string) (*TrustInfo, error) {
	info := &TrustInfo{UserID: userID}
	stock, err := s.GetStockByIssuer(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrStockNotFound):
	case err != nil:
		return nil, err
	default:
		info.StockID = stock.ID
		info.MarketCap = stock.MarketCap
	}
	info.Level = market.TrustLevelFor(info.MarketCap)
	return info, nil
}

// mulInt64 returns a*b for non-negative operands and reports overflow.
func mulInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(1<<63-1) {
		return 0, false
	}
	return int64(lo), true
}
