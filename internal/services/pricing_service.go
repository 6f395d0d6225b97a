package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/events"
	"creatorx/internal/logger"
	"creatorx/internal/market"
	"creatorx/internal/models"
	"creatorx/internal/uow"
	"creatorx/internal/worker"
)

// repriceConcurrency bounds RecomputeAll's fan-out.
const repriceConcurrency = 4

// pricingService derives share prices from market activity. The formula
// lives in package market; this service gathers its inputs and persists the
// result.
type pricingService struct {
	db         *gorm.DB
	uow        *uow.UnitOfWork
	params     market.Params
	publisher  events.Publisher
	dispatcher worker.Dispatcher
	flight     singleflight.Group
	now        func() time.Time
}

// NewPricingService creates a new PricingServicer.
func NewPricingService(u *uow.UnitOfWork, params market.Params, publisher events.Publisher, dispatcher worker.Dispatcher) PricingServicer {
	return &pricingService{
		db:         u.DB(),
		uow:        u,
		params:     params,
		publisher:  publisher,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RecomputePrice reprices the issuer's stock. Concurrent calls for the same
// issuer share one computation, which runs detached from any single caller's
// cancellation; each caller still stops waiting when its own ctx ends.
func (s *pricingService) RecomputePrice(ctx context.Context, issuerID string) (*PriceChange, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(issuerID, func() (any, error) {
		return s.recompute(shared, issuerID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		change := *res.Val.(*PriceChange)
		return &change, nil
	}
}

func (s *pricingService) recompute(ctx context.Context, issuerID string) (*PriceChange, error) {
	now := s.now()
	var change *PriceChange

	err := s.uow.Do(ctx, []string{uow.IssuerKey(issuerID)}, func(tx *gorm.DB) error {
		var stock models.Stock
		if err := uow.ForUpdate(tx).Where("issuer_id = ?", issuerID).First(&stock).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrStockNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		sig, err := s.gatherSignals(tx, &stock, now)
		if err != nil {
			return err
		}
		quote := s.params.Price(sig)

		change = &PriceChange{
			StockID:   stock.ID,
			IssuerID:  issuerID,
			OldPrice:  stock.SharePrice,
			NewPrice:  quote.Price,
			MarketCap: stock.MarketCap,
			Signals:   sig,
			Factors:   quote.Factors,
		}
		if quote.Price == stock.SharePrice {
			return nil
		}
		if _, ok := mulInt64(quote.Price, stock.TotalShares); !ok {
			return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("market cap overflow for stock %s", stock.ID))
		}

		stock.SetPrice(quote.Price)
		if err := tx.Model(&stock).Updates(map[string]any{
			"share_price":    stock.SharePrice,
			"previous_price": stock.PreviousPrice,
			"market_cap":     stock.MarketCap,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		point := &models.StockPrice{
			StockID:       stock.ID,
			Price:         stock.SharePrice,
			PreviousPrice: stock.PreviousPrice,
			RecordedAt:    now,
		}
		if err := tx.Create(point).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		change.Changed = true
		change.MarketCap = stock.MarketCap
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change.Changed {
		logger.Get().Infow("stock repriced",
			"stock_id", change.StockID,
			"issuer_id", issuerID,
			"old_price", change.OldPrice,
			"new_price", change.NewPrice,
		)
		s.publisher.Publish(events.TopicPriceUpdate, change)
	}
	return change, nil
}

// gatherSignals reads the pricing inputs for one stock inside tx.
func (s *pricingService) gatherSignals(tx *gorm.DB, stock *models.Stock, now time.Time) (market.Signals, error) {
	sig := market.Signals{
		MarketCap: stock.MarketCap,
		Trust:     market.TrustLevelFor(stock.MarketCap).Tier,
	}
	growthStart := now.Add(-s.params.GrowthWindow)
	activityStart := now.Add(-s.params.ActivityWindow)

	var holders struct {
		Gained int64
		Prior  int64
	}
	if err := tx.Model(&models.Holding{}).
		Select("COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS gained, "+
			"COALESCE(SUM(CASE WHEN created_at < ? THEN 1 ELSE 0 END), 0) AS prior", growthStart, growthStart).
		Where("stock_id = ?", stock.ID).
		Scan(&holders).Error; err != nil {
		return sig, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sig.HoldersGained = holders.Gained
	sig.HoldersBefore = holders.Prior

	var engagement struct {
		Posts int64
		Score int64
	}
	if err := tx.Model(&models.PostMetric{}).
		Select("COUNT(*) AS posts, COALESCE(SUM(likes + 2 * comments + 3 * shares), 0) AS score").
		Where("author_id = ? AND published_at >= ?", stock.IssuerID, activityStart).
		Scan(&engagement).Error; err != nil {
		return sig, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sig.PostCount = engagement.Posts
	sig.EngagementScore = engagement.Score

	if err := tx.Model(&models.Trade{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("stock_id = ? AND created_at >= ?", stock.ID, activityStart).
		Scan(&sig.VolumeShares).Error; err != nil {
		return sig, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	dayStart := now.Truncate(24 * time.Hour)
	if err := tx.Model(&models.DividendPayout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("stock_id = ? AND status = ? AND paid_at >= ?", stock.ID, models.PayoutStatusPaid, dayStart).
		Scan(&sig.DividendsToday).Error; err != nil {
		return sig, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return sig, nil
}

// RecomputeAll reprices every stock, continuing past individual failures.
func (s *pricingService) RecomputeAll(ctx context.Context) (*RepriceResult, error) {
	start := time.Now()

	var issuerIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Stock{}).Order("issuer_id").Pluck("issuer_id", &issuerIDs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RepriceResult{Stocks: len(issuerIDs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repriceConcurrency)
	for _, issuerID := range issuerIDs {
		g.Go(func() error {
			change, err := s.RecomputePrice(gctx, issuerID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Get().Errorw("reprice failed", "issuer_id", issuerID, "error", err)
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", issuerID, err))
				return nil
			}
			if change.Changed {
				result.Changed++
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	logger.Get().Infow("reprice run complete",
		"stocks", result.Stocks,
		"changed", result.Changed,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	return result, nil
}

// ScheduleReprice queues a recomputation for the issuer. Queue failures are
// logged only; the next scheduled run catches up.
func (s *pricingService) ScheduleReprice(issuerID string) {
	task := worker.Task{
		Key:  "reprice:" + issuerID,
		Name: "reprice",
		Run: func(ctx context.Context) error {
			_, err := s.RecomputePrice(ctx, issuerID)
			if errors.Is(err, apperrors.ErrStockNotFound) {
				return nil
			}
			return err
		},
	}
	if _, err := s.dispatcher.Enqueue(task); err != nil {
		logger.Get().Warnw("failed to schedule reprice", "issuer_id", issuerID, "error", err)
	}
}
