package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
)

// notificationService stores in-app alerts.
type notificationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB) NotificationServicer {
	return &notificationService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// NotifyDividend writes a dividend alert for the payout's holder.
func (s *notificationService) NotifyDividend(ctx context.Context, payout *models.DividendPayout, event *models.EarningEvent) error {
	n := &models.Notification{
		UserID:    payout.HolderID,
		Kind:      models.NotificationKindDividend,
		Title:     "Dividend received",
		Body:      fmt.Sprintf("You received %d coins for your %d shares.", payout.Amount, payout.Shares),
		Reference: referenceFor("dividend", event.ID),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListNotifications returns the user's alerts, newest first.
func (s *notificationService) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("user_id = ?", userID)
		if unreadOnly {
			q = q.Where("read_at IS NULL")
		}
		return q
	}

	var totalItems int64
	if err := db.Model(&models.Notification{}).Scopes(scope).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var items []models.Notification
	if err := db.Scopes(scope, pagination.Paginate(page)).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(items, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// MarkRead marks one of the user's alerts as read.
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", s.now())
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", notificationID, userID).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return apperrors.ErrNotFound
		}
	}
	return nil
}
