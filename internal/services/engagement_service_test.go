package services

import (
	"context"
	"testing"
	"time"

	"creatorx/internal/models"
	"creatorx/internal/testutil"
)

func TestRecordPostMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts_by_post_and_schedules_reprice", func(t *testing.T) {
		m := newTestMarket(t)
		creator := testutil.CreateTestUser(t, m.db)
		testutil.CreateTestStock(t, m.db, creator.ID, 100, 50, 10)
		bystander := testutil.CreateTestUser(t, m.db)
		published := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

		n, err := m.engagement.RecordPostMetrics(ctx, []PostMetricInput{
			{PostID: "post-1", AuthorID: creator.ID, Likes: 10, PublishedAt: published},
			{PostID: "post-2", AuthorID: bystander.ID, Likes: 3},
		})
		testutil.AssertNoError(t, err)
		if n != 2 {
			t.Fatalf("expected 2 rows, got %d", n)
		}

		_, err = m.engagement.RecordPostMetrics(ctx, []PostMetricInput{
			{PostID: "post-1", AuthorID: creator.ID, Likes: 25, Comments: 4, Shares: 1, PublishedAt: published},
		})
		testutil.AssertNoError(t, err)

		var rows []models.PostMetric
		m.db.Where("post_id = ?", "post-1").Find(&rows)
		if len(rows) != 1 {
			t.Fatalf("expected a single row for post-1, got %d", len(rows))
		}
		if rows[0].Likes != 25 || rows[0].Comments != 4 || rows[0].Shares != 1 {
			t.Errorf("expected counters overwritten, got %+v", rows[0])
		}

		// Only the author with a stock is repriced, once per batch.
		keys := m.dispatcher.keys()
		if len(keys) != 2 || keys[0] != "reprice:"+creator.ID || keys[1] != keys[0] {
			t.Errorf("expected one reprice per batch for the creator, got %v", keys)
		}
	})

	t.Run("missing_published_at_defaults_to_now", func(t *testing.T) {
		m := newTestMarket(t)
		author := testutil.CreateTestUser(t, m.db)
		before := time.Now().UTC().Add(-time.Second)

		_, err := m.engagement.RecordPostMetrics(ctx, []PostMetricInput{{PostID: "p", AuthorID: author.ID}})
		testutil.AssertNoError(t, err)

		var row models.PostMetric
		m.db.Where("post_id = ?", "p").First(&row)
		if row.PublishedAt.Before(before) {
			t.Errorf("expected published_at near now, got %s", row.PublishedAt)
		}
	})

	t.Run("rejects_invalid_entries_without_writing", func(t *testing.T) {
		m := newTestMarket(t)
		author := testutil.CreateTestUser(t, m.db)

		_, err := m.engagement.RecordPostMetrics(ctx, []PostMetricInput{
			{PostID: "ok", AuthorID: author.ID, Likes: 1},
			{PostID: "bad", AuthorID: author.ID, Likes: -1},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = m.engagement.RecordPostMetrics(ctx, []PostMetricInput{{PostID: " ", AuthorID: author.ID}})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		var count int64
		m.db.Model(&models.PostMetric{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no rows written, got %d", count)
		}
	})

	t.Run("empty_batch_is_noop", func(t *testing.T) {
		m := newTestMarket(t)

		n, err := m.engagement.RecordPostMetrics(ctx, nil)
		testutil.AssertNoError(t, err)
		if n != 0 || len(m.dispatcher.keys()) != 0 {
			t.Errorf("expected nothing recorded or scheduled")
		}
	})
}
