package models

import "time"

// EarningStatus tracks an earning event through dividend distribution.
type EarningStatus string

const (
	EarningStatusSkipped   EarningStatus = "skipped"
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusCompleted EarningStatus = "completed"
	EarningStatusFailed    EarningStatus = "failed"
)

// EarningEvent records one creator earning and the dividend pool carved out
// of it. Amount = CreatorKept + Pool, and Pool = Paid + RoundingLoss once
// completed.
type EarningEvent struct {
	Base
	CreatorID    string        `gorm:"type:uuid;not null;index" json:"creator_id"`
	StockID      *string       `gorm:"type:uuid;index" json:"stock_id,omitempty"`
	Amount       int64         `gorm:"type:bigint;not null" json:"amount"`
	SourceTag    string        `gorm:"not null" json:"source_tag"`
	DividendRate float64       `gorm:"not null" json:"dividend_rate"`
	Pool         int64         `gorm:"type:bigint;not null" json:"pool"`
	CreatorKept  int64         `gorm:"type:bigint;not null" json:"creator_kept"`
	Paid         int64         `gorm:"type:bigint;not null" json:"paid"`
	RoundingLoss int64         `gorm:"type:bigint;not null" json:"rounding_loss"`
	Status       EarningStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts     int           `gorm:"not null" json:"attempts"`
	LastError    string        `json:"last_error,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`

	Payouts []DividendPayout `gorm:"foreignKey:EarningEventID" json:"payouts,omitempty"`
}

// PayoutStatus tracks a single holder's dividend credit.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// DividendPayout is one holder's planned share of an earning event's pool.
type DividendPayout struct {
	Base
	EarningEventID string       `gorm:"type:uuid;not null;uniqueIndex:idx_dividend_payouts_event_holder" json:"earning_event_id"`
	StockID        string       `gorm:"type:uuid;not null;index" json:"stock_id"`
	HolderID       string       `gorm:"type:uuid;not null;uniqueIndex:idx_dividend_payouts_event_holder;index" json:"holder_id"`
	Shares         int64        `gorm:"type:bigint;not null" json:"shares"`
	Amount         int64        `gorm:"type:bigint;not null" json:"amount"`
	Status         PayoutStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	PaidAt         *time.Time   `json:"paid_at,omitempty"`
}
