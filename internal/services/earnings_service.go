package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/logger"
	"creatorx/internal/market"
	"creatorx/internal/models"
	"creatorx/internal/uow"
	"creatorx/internal/uuid"
	"creatorx/internal/worker"
)

// earningsService credits creator earnings and carves out the dividend pool
// owed to the creator's shareholders.
type earningsService struct {
	db         *gorm.DB
	uow        *uow.UnitOfWork
	ledger     LedgerServicer
	dividends  DividendServicer
	dispatcher worker.Dispatcher
}

// NewEarningsService creates a new EarningsServicer.
func NewEarningsService(u *uow.UnitOfWork, ledger LedgerServicer, dividends DividendServicer, dispatcher worker.Dispatcher) EarningsServicer {
	return &earningsService{
		db:         u.DB(),
		uow:        u,
		ledger:     ledger,
		dividends:  dividends,
		dispatcher: dispatcher,
	}
}

// AwardCreatorEarnings records an earning for creatorID. When the creator
// has shareholders and a non-zero pool, the creator keeps amount minus pool
// and the pool is planned as pending payouts distributed asynchronously.
// Without a stock, holders or pool the creator keeps the whole amount.
func (s *earningsService) AwardCreatorEarnings(ctx context.Context, creatorID string, amount int64, sourceTag string) (*models.EarningEvent, error) {
	sourceTag = strings.TrimSpace(sourceTag)
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if sourceTag == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source tag is required")
	}
	if creatorID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "creator id is required")
	}

	event := &models.EarningEvent{
		Base:      models.Base{ID: uuid.New()},
		CreatorID: creatorID,
		Amount:    amount,
		SourceTag: sourceTag,
	}

	err := s.uow.Do(ctx, []string{uow.IssuerKey(creatorID)}, func(tx *gorm.DB) error {
		var stock models.Stock
		err := uow.ForUpdate(tx).Where("issuer_id = ?", creatorID).First(&stock).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		hasStock := err == nil

		var (
			payouts []models.DividendPayout
			holders int
		)
		if hasStock {
			event.StockID = &stock.ID
			event.DividendRate = market.EffectiveDividendRate(stock.DividendRate, stock.MarketCap)
			event.Pool = market.DividendPool(amount, event.DividendRate)
			if event.Pool > 0 {
				payouts, holders, err = planPayouts(tx, &stock, event)
				if err != nil {
					return err
				}
			}
		}

		switch {
		case holders == 0:
			event.Status = models.EarningStatusSkipped
			event.Pool = 0
			event.CreatorKept = amount
		case len(payouts) == 0:
			// Every holder's share floors to zero; the pool is lost to rounding.
			completedAt := time.Now().UTC()
			event.Status = models.EarningStatusCompleted
			event.CreatorKept = amount - event.Pool
			event.RoundingLoss = event.Pool
			event.CompletedAt = &completedAt
		default:
			event.Status = models.EarningStatusPending
			event.CreatorKept = amount - event.Pool
		}

		if err := tx.Create(event).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(payouts) > 0 {
			if err := tx.Create(&payouts).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if event.CreatorKept > 0 {
			if _, err := s.ledger.Credit(tx, creatorID, event.CreatorKept, models.LedgerKindEarning, referenceFor("earning", event.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("creator earnings awarded",
		"event_id", event.ID,
		"creator_id", creatorID,
		"amount", amount,
		"source", sourceTag,
		"pool", event.Pool,
		"status", event.Status,
	)

	if event.Status == models.EarningStatusPending {
		s.scheduleDistribution(event.ID)
	}
	return event, nil
}

// planPayouts splits the event's pool across the stock's holders in
// proportion to their share of TotalShares and reports how many holders there
// are. Zero amounts are omitted.
func planPayouts(tx *gorm.DB, stock *models.Stock, event *models.EarningEvent) ([]models.DividendPayout, int, error) {
	var holdings []models.Holding
	if err := tx.Where("stock_id = ? AND shares > 0", stock.ID).Order("holder_id").Find(&holdings).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	payouts := make([]models.DividendPayout, 0, len(holdings))
	for _, h := range holdings {
		amount := market.ProRata(event.Pool, h.Shares, stock.TotalShares)
		if amount <= 0 {
			continue
		}
		payouts = append(payouts, models.DividendPayout{
			EarningEventID: event.ID,
			StockID:        stock.ID,
			HolderID:       h.HolderID,
			Shares:         h.Shares,
			Amount:         amount,
			Status:         models.PayoutStatusPending,
		})
	}
	return payouts, len(holdings), nil
}

func (s *earningsService) scheduleDistribution(eventID string) {
	task := worker.Task{
		Key:  "dividend:" + eventID,
		Name: "distribute",
		Run: func(ctx context.Context) error {
			_, err := s.dividends.Distribute(ctx, eventID)
			return err
		},
		OnGiveUp: func(err error) {
			s.dividends.MarkFailed(context.Background(), eventID, err)
		},
	}
	if _, err := s.dispatcher.Enqueue(task); err != nil {
		logger.Get().Errorw("failed to schedule dividend distribution", "event_id", eventID, "error", err)
		s.dividends.MarkFailed(context.Background(), eventID, err)
	}
}

// GetEarningEvent returns an event with its payouts.
func (s *earningsService) GetEarningEvent(ctx context.Context, eventID string) (*models.EarningEvent, error) {
	var event models.EarningEvent
	err := s.db.WithContext(ctx).
		Preload("Payouts", func(db *gorm.DB) *gorm.DB { return db.Order("holder_id") }).
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEarningEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}
