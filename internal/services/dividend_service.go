package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/events"
	"creatorx/internal/logger"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
)

// DividendReceived is the payload published on events.TopicDividendReceived.
type DividendReceived struct {
	EventID   string    `json:"event_id"`
	StockID   string    `json:"stock_id"`
	CreatorID string    `json:"creator_id"`
	HolderID  string    `json:"holder_id"`
	Shares    int64     `json:"shares"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

// dividendService pays the pending payouts planned by the earnings service.
type dividendService struct {
	db        *gorm.DB
	ledger    LedgerServicer
	notifier  Notifier
	publisher events.Publisher
	pricing   PricingServicer
	now       func() time.Time
}

// NewDividendService creates a new DividendServicer.
func NewDividendService(db *gorm.DB, ledger LedgerServicer, notifier Notifier, publisher events.Publisher, pricing PricingServicer) DividendServicer {
	return &dividendService{
		db:        db,
		ledger:    ledger,
		notifier:  notifier,
		publisher: publisher,
		pricing:   pricing,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Distribute pays every pending payout of the event and completes it. Each
// payout is credited in its own transaction together with its status flip,
// so a retry after a partial failure only pays what is still pending.
func (s *dividendService) Distribute(ctx context.Context, eventID string) (*DistributionResult, error) {
	db := s.db.WithContext(ctx)

	event, err := s.loadEvent(db, eventID)
	if err != nil {
		return nil, err
	}
	switch event.Status {
	case models.EarningStatusSkipped, models.EarningStatusCompleted:
		return resultOf(event, s.countPaid(db, eventID)), nil
	}

	if err := db.Model(&models.EarningEvent{}).Where("id = ?", eventID).Updates(map[string]any{
		"attempts": gorm.Expr("attempts + 1"),
		"status":   models.EarningStatusPending,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var pending []models.DividendPayout
	if err := db.Where("earning_event_id = ? AND status = ?", eventID, models.PayoutStatusPending).
		Order("holder_id").
		Find(&pending).Error; err != nil {
		return nil, s.recordFailure(db, eventID, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}

	for i := range pending {
		payout := &pending[i]
		paid, err := s.pay(db, event, payout)
		if err != nil {
			return nil, s.recordFailure(db, eventID, err)
		}
		if paid {
			s.announce(ctx, event, payout)
		}
	}

	var totals struct {
		Paid       int64
		Recipients int64
	}
	if err := db.Model(&models.DividendPayout{}).
		Select("COALESCE(SUM(amount), 0) AS paid, COUNT(*) AS recipients").
		Where("earning_event_id = ? AND status = ?", eventID, models.PayoutStatusPaid).
		Scan(&totals).Error; err != nil {
		return nil, s.recordFailure(db, eventID, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}

	completedAt := s.now()
	event.Status = models.EarningStatusCompleted
	event.Paid = totals.Paid
	event.RoundingLoss = event.Pool - totals.Paid
	event.CompletedAt = &completedAt
	event.LastError = ""
	if err := db.Model(&models.EarningEvent{}).Where("id = ?", eventID).Updates(map[string]any{
		"status":        event.Status,
		"paid":          event.Paid,
		"rounding_loss": event.RoundingLoss,
		"completed_at":  completedAt,
		"last_error":    "",
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("dividends distributed",
		"event_id", eventID,
		"creator_id", event.CreatorID,
		"pool", event.Pool,
		"paid", event.Paid,
		"rounding_loss", event.RoundingLoss,
		"recipients", totals.Recipients,
	)

	if event.Paid > 0 {
		s.pricing.ScheduleReprice(event.CreatorID)
	}
	return resultOf(event, int(totals.Recipients)), nil
}

// pay credits one payout. It reports false when another run already paid it.
func (s *dividendService) pay(db *gorm.DB, event *models.EarningEvent, payout *models.DividendPayout) (bool, error) {
	paidAt := s.now()
	paid := false
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DividendPayout{}).
			Where("id = ? AND status = ?", payout.ID, models.PayoutStatusPending).
			Updates(map[string]any{"status": models.PayoutStatusPaid, "paid_at": paidAt})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if _, err := s.ledger.Credit(tx, payout.HolderID, payout.Amount, models.LedgerKindDividend, referenceFor("dividend", event.ID)); err != nil {
			return err
		}
		if err := tx.Model(&models.Stock{}).Where("id = ?", payout.StockID).
			Update("total_dividends_paid", gorm.Expr("total_dividends_paid + ?", payout.Amount)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		paid = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if paid {
		payout.Status = models.PayoutStatusPaid
		payout.PaidAt = &paidAt
	}
	return paid, nil
}

// announce notifies the holder and broadcasts the payout. Failures are
// logged only.
func (s *dividendService) announce(ctx context.Context, event *models.EarningEvent, payout *models.DividendPayout) {
	if err := s.notifier.NotifyDividend(ctx, payout, event); err != nil {
		logger.Get().Warnw("failed to send dividend notification",
			"event_id", event.ID,
			"holder_id", payout.HolderID,
			"error", err,
		)
	}
	s.publisher.Publish(events.TopicDividendReceived, DividendReceived{
		EventID:   event.ID,
		StockID:   payout.StockID,
		CreatorID: event.CreatorID,
		HolderID:  payout.HolderID,
		Shares:    payout.Shares,
		Amount:    payout.Amount,
		PaidAt:    *payout.PaidAt,
	})
}

func (s *dividendService) recordFailure(db *gorm.DB, eventID string, cause error) error {
	if err := db.Model(&models.EarningEvent{}).Where("id = ?", eventID).
		Update("last_error", cause.Error()).Error; err != nil {
		logger.Get().Errorw("failed to record distribution error", "event_id", eventID, "error", err)
	}
	return cause
}

// MarkFailed parks an event whose distribution task gave up. Completed and
// skipped events are left untouched.
func (s *dividendService) MarkFailed(ctx context.Context, eventID string, cause error) {
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	err := s.db.WithContext(ctx).Model(&models.EarningEvent{}).
		Where("id = ? AND status = ?", eventID, models.EarningStatusPending).
		Updates(map[string]any{"status": models.EarningStatusFailed, "last_error": lastError}).Error
	if err != nil {
		logger.Get().Errorw("failed to mark earning event failed", "event_id", eventID, "error", err)
		return
	}
	logger.Get().Errorw("dividend distribution gave up", "event_id", eventID, "cause", lastError)
}

// ListDividendsReceived returns the user's paid dividends, newest first.
func (s *dividendService) ListDividendsReceived(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.DividendPayout], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		return q.Where("holder_id = ? AND status = ?", userID, models.PayoutStatusPaid)
	}

	var totalItems int64
	if err := db.Model(&models.DividendPayout{}).Scopes(scope).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payouts []models.DividendPayout
	if err := db.Scopes(scope, pagination.Paginate(page)).
		Order("paid_at DESC, id DESC").
		Find(&payouts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(payouts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *dividendService) loadEvent(db *gorm.DB, eventID string) (*models.EarningEvent, error) {
	var event models.EarningEvent
	if err := db.Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEarningEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

func (s *dividendService) countPaid(db *gorm.DB, eventID string) int {
	var n int64
	if err := db.Model(&models.DividendPayout{}).
		Where("earning_event_id = ? AND status = ?", eventID, models.PayoutStatusPaid).
		Count(&n).Error; err != nil {
		logger.Get().Warnw("failed to count dividend recipients", "event_id", eventID, "error", err)
	}
	return int(n)
}

func resultOf(event *models.EarningEvent, recipients int) *DistributionResult {
	return &DistributionResult{
		EventID:      event.ID,
		Status:       event.Status,
		Pool:         event.Pool,
		Paid:         event.Paid,
		RoundingLoss: event.RoundingLoss,
		Recipients:   recipients,
	}
}
