package models

import "time"

// PostMetric carries the engagement counters of one feed post, ingested from
// the social feed. Re-ingesting a post overwrites its counters.
type PostMetric struct {
	Base
	PostID      string    `gorm:"uniqueIndex;not null" json:"post_id"`
	AuthorID    string    `gorm:"type:uuid;not null;index:idx_post_metrics_author_published" json:"author_id"`
	Likes       int64     `gorm:"type:bigint;not null" json:"likes"`
	Comments    int64     `gorm:"type:bigint;not null" json:"comments"`
	Shares      int64     `gorm:"type:bigint;not null" json:"shares"`
	PublishedAt time.Time `gorm:"not null;index:idx_post_metrics_author_published" json:"published_at"`
}
