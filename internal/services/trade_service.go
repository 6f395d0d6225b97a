package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/events"
	"creatorx/internal/logger"
	"creatorx/internal/market"
	"creatorx/internal/models"
	"creatorx/internal/uow"
	"creatorx/internal/uuid"
)

// tradeService executes buys and sells against the issuer, who is always
// the counterparty at the posted share price.
type tradeService struct {
	db        *gorm.DB
	uow       *uow.UnitOfWork
	ledger    LedgerServicer
	pricing   PricingServicer
	publisher events.Publisher
}

// NewTradeService creates a new TradeServicer.
func NewTradeService(u *uow.UnitOfWork, ledger LedgerServicer, pricing PricingServicer, publisher events.Publisher) TradeServicer {
	return &tradeService{db: u.DB(), uow: u, ledger: ledger, pricing: pricing, publisher: publisher}
}

// BuyShares buys quantity primary shares from the issuer. Either every
// effect is applied or none is.
func (s *tradeService) BuyShares(ctx context.Context, buyerID, stockID string, quantity int64) (*BuyResult, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	issuerID, err := s.issuerOf(ctx, stockID)
	if err != nil {
		return nil, err
	}

	var result BuyResult
	err = s.uow.Do(ctx, []string{uow.IssuerKey(issuerID)}, func(tx *gorm.DB) error {
		stock, err := lockStock(tx, stockID)
		if err != nil {
			return err
		}
		if stock.IssuerID == buyerID {
			return apperrors.ErrSelfTradeNotAllowed
		}
		if quantity > stock.OfferingRemaining() {
			return apperrors.ErrOfferingExhausted
		}
		cost, ok := mulInt64(stock.SharePrice, quantity)
		if !ok {
			return apperrors.ErrInvalidQuantity
		}

		trade := models.Trade{
			StockID:       stock.ID,
			IssuerID:      stock.IssuerID,
			BuyerID:       &buyerID,
			Side:          models.TradeSideBuy,
			Quantity:      quantity,
			PricePerShare: stock.SharePrice,
			TotalAmount:   cost,
		}
		trade.ID = uuid.New()

		if err := s.ledger.Transfer(tx, Transfer{
			From:       buyerID,
			To:         stock.IssuerID,
			Amount:     cost,
			DebitKind:  models.LedgerKindTradeBuy,
			CreditKind: models.LedgerKindIssuerSale,
			Reference:  referenceFor("trade", trade.ID),
		}); err != nil {
			return err
		}

		holding, isNew, err := s.addToHolding(tx, buyerID, stock, quantity, cost)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"issued_shares":     gorm.Expr("issued_shares + ?", quantity),
			"transaction_count": gorm.Expr("transaction_count + 1"),
		}
		if isNew {
			updates["shareholder_count"] = gorm.Expr("shareholder_count + 1")
		}
		if err := tx.Model(stock).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Create(&trade).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result = BuyResult{Trade: trade, Holding: *holding}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTrade(issuerID, &result.Trade)
	return &result, nil
}

// addToHolding creates the buyer's holding or folds the purchase into it.
func (s *tradeService) addToHolding(tx *gorm.DB, holderID string, stock *models.Stock, quantity, cost int64) (*models.Holding, bool, error) {
	var holding models.Holding
	err := uow.ForUpdate(tx).Where("holder_id = ? AND stock_id = ?", holderID, stock.ID).First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		holding = models.Holding{
			HolderID:     holderID,
			StockID:      stock.ID,
			Shares:       quantity,
			AveragePrice: stock.SharePrice,
		}
		if err := tx.Create(&holding).Error; err != nil {
			return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &holding, true, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holding.AveragePrice = market.AveragePrice(holding.AveragePrice, holding.Shares, cost, quantity)
	holding.Shares += quantity
	if err := tx.Model(&holding).Updates(map[string]any{
		"shares":        holding.Shares,
		"average_price": holding.AveragePrice,
	}).Error; err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &holding, false, nil
}

// SellShares sells quantity shares back to the issuer at the current price.
func (s *tradeService) SellShares(ctx context.Context, sellerID, stockID string, quantity int64) (*SellResult, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	issuerID, err := s.issuerOf(ctx, stockID)
	if err != nil {
		return nil, err
	}

	var result SellResult
	err = s.uow.Do(ctx, []string{uow.IssuerKey(issuerID)}, func(tx *gorm.DB) error {
		stock, err := lockStock(tx, stockID)
		if err != nil {
			return err
		}
		if stock.IssuerID == sellerID {
			return apperrors.ErrSelfTradeNotAllowed
		}

		var holding models.Holding
		if err := uow.ForUpdate(tx).Where("holder_id = ? AND stock_id = ?", sellerID, stock.ID).First(&holding).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrHoldingNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if holding.Shares < quantity {
			return apperrors.ErrInsufficientShares
		}
		proceeds, ok := mulInt64(stock.SharePrice, quantity)
		if !ok {
			return apperrors.ErrInvalidQuantity
		}

		trade := models.Trade{
			StockID:       stock.ID,
			IssuerID:      stock.IssuerID,
			SellerID:      &sellerID,
			Side:          models.TradeSideSell,
			Quantity:      quantity,
			PricePerShare: stock.SharePrice,
			TotalAmount:   proceeds,
		}
		trade.ID = uuid.New()

		if err := s.ledger.Transfer(tx, Transfer{
			From:       stock.IssuerID,
			To:         sellerID,
			Amount:     proceeds,
			DebitKind:  models.LedgerKindIssuerBuyback,
			CreditKind: models.LedgerKindTradeSell,
			Reference:  referenceFor("trade", trade.ID),
		}); err != nil {
			if errors.Is(err, apperrors.ErrInsufficientBalance) {
				return apperrors.WithMessage(apperrors.ErrInsufficientBalance, "issuer cannot cover this sale")
			}
			return err
		}

		updates := map[string]any{
			"issued_shares":     gorm.Expr("issued_shares - ?", quantity),
			"transaction_count": gorm.Expr("transaction_count + 1"),
		}
		remaining := holding.Shares - quantity
		if remaining == 0 {
			if err := tx.Unscoped().Delete(&holding).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			updates["shareholder_count"] = gorm.Expr("shareholder_count - 1")
		} else if err := tx.Model(&holding).Update("shares", remaining).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(stock).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(&trade).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result = SellResult{Trade: trade, RemainingShares: remaining}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTrade(issuerID, &result.Trade)
	return &result, nil
}

// GetHoldings returns the user's positions with their stocks.
func (s *tradeService) GetHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := s.db.WithContext(ctx).Preload("Stock").
		Where("holder_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return holdings, nil
}

// issuerOf resolves the lock key for a stock. IssuerID never changes, so it
// is safe to read before taking the lock.
func (s *tradeService) issuerOf(ctx context.Context, stockID string) (string, error) {
	var issuerIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ?", stockID).
		Limit(1).
		Pluck("issuer_id", &issuerIDs).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(issuerIDs) == 0 {
		return "", apperrors.ErrStockNotFound
	}
	return issuerIDs[0], nil
}

// afterTrade runs the best-effort follow-ups of a committed trade.
func (s *tradeService) afterTrade(issuerID string, trade *models.Trade) {
	logger.Get().Infow("trade executed",
		"trade_id", trade.ID,
		"stock_id", trade.StockID,
		"side", trade.Side,
		"trader_id", trade.TraderID(),
		"quantity", trade.Quantity,
		"price", trade.PricePerShare,
	)
	s.pricing.ScheduleReprice(issuerID)
	s.publisher.Publish(events.TopicTradeNew, trade)
}

// lockStock re-reads a stock row under the unit of work's row lock.
func lockStock(tx *gorm.DB, stockID string) (*models.Stock, error) {
	var stock models.Stock
	if err := uow.ForUpdate(tx).Where("id = ?", stockID).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}
