package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/models"
	"creatorx/internal/pagination"
)

type mockNotificationService struct {
	listFn     func(ctx context.Context, userID string, unreadOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
	markReadFn func(ctx context.Context, userID, notificationID string) error
}

func (m *mockNotificationService) NotifyDividend(context.Context, *models.DividendPayout, *models.EarningEvent) error {
	return nil
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, unreadOnly, page)
	}
	resp := pagination.NewPageResponse[models.Notification](nil, 1, 20, 0)
	return &resp, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func setupNotificationRouter(handler *NotificationHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("/", injectUserID(testUserID))
	auth.GET("/notifications", handler.ListNotifications)
	auth.POST("/notifications/:id/read", handler.MarkRead)
	return r
}

func TestNotificationHandler(t *testing.T) {
	const notificationID = "0190a000-0000-7000-8000-0000000000c1"

	t.Run("lists unread only", func(t *testing.T) {
		var gotUnread bool
		svc := &mockNotificationService{
			listFn: func(_ context.Context, _ string, unreadOnly bool, _ pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
				gotUnread = unreadOnly
				resp := pagination.NewPageResponse([]models.Notification{{Kind: models.NotificationKindDividend, Title: "Dividend received"}}, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupNotificationRouter(NewNotificationHandler(svc))

		rec := doRequest(r, "GET", "/notifications?unread=true", "")

		if rec.Code != http.StatusOK || !gotUnread {
			t.Fatalf("expected 200 with unread filter, got %d unread=%v", rec.Code, gotUnread)
		}
	})

	t.Run("marks read", func(t *testing.T) {
		var gotUser, gotID string
		svc := &mockNotificationService{
			markReadFn: func(_ context.Context, userID, id string) error {
				gotUser, gotID = userID, id
				return nil
			},
		}
		r := setupNotificationRouter(NewNotificationHandler(svc))

		rec := doRequest(r, "POST", "/notifications/"+notificationID+"/read", "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if gotUser != testUserID || gotID != notificationID {
			t.Errorf("unexpected args user=%s id=%s", gotUser, gotID)
		}
	})

	t.Run("mark read not found", func(t *testing.T) {
		svc := &mockNotificationService{
			markReadFn: func(context.Context, string, string) error { return apperrors.ErrNotFound },
		}
		r := setupNotificationRouter(NewNotificationHandler(svc))

		rec := doRequest(r, "POST", "/notifications/"+notificationID+"/read", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
