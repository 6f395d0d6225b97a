package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "creatorx/internal/errors"
	"creatorx/internal/models"
)

// engagementService ingests post engagement counters from the social feed.
type engagementService struct {
	db      *gorm.DB
	pricing PricingServicer
	now     func() time.Time
}

// NewEngagementService creates a new EngagementServicer.
func NewEngagementService(db *gorm.DB, pricing PricingServicer) EngagementServicer {
	return &engagementService{db: db, pricing: pricing, now: func() time.Time { return time.Now().UTC() }}
}

// RecordPostMetrics upserts the given counters by post id and schedules a
// reprice for every affected author that has a stock.
func (s *engagementService) RecordPostMetrics(ctx context.Context, metrics []PostMetricInput) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	rows := make([]models.PostMetric, 0, len(metrics))
	authors := make(map[string]struct{})
	for _, m := range metrics {
		postID := strings.TrimSpace(m.PostID)
		authorID := strings.TrimSpace(m.AuthorID)
		if postID == "" || authorID == "" {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "post id and author id are required")
		}
		if m.Likes < 0 || m.Comments < 0 || m.Shares < 0 {
			return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "engagement counters must not be negative")
		}
		published := m.PublishedAt
		if published.IsZero() {
			published = s.now()
		}
		rows = append(rows, models.PostMetric{
			PostID:      postID,
			AuthorID:    authorID,
			Likes:       m.Likes,
			Comments:    m.Comments,
			Shares:      m.Shares,
			PublishedAt: published.UTC(),
		})
		authors[authorID] = struct{}{}
	}

	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"author_id", "likes", "comments", "shares", "published_at", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	authorIDs := make([]string, 0, len(authors))
	for id := range authors {
		authorIDs = append(authorIDs, id)
	}
	var issuers []string
	if err := db.Model(&models.Stock{}).Where("issuer_id IN ?", authorIDs).Pluck("issuer_id", &issuers).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, issuerID := range issuers {
		s.pricing.ScheduleReprice(issuerID)
	}

	return len(rows), nil
}
