package models

import "time"

// StockPrice is one point of a stock's price history, written whenever the
// pricing engine moves the price.
type StockPrice struct {
	Record
	StockID       string    `gorm:"type:uuid;not null;index:idx_stock_prices_stock_recorded" json:"stock_id"`
	Price         int64     `gorm:"type:bigint;not null" json:"price"`
	PreviousPrice int64     `gorm:"type:bigint;not null" json:"previous_price"`
	RecordedAt    time.Time `gorm:"not null;index:idx_stock_prices_stock_recorded" json:"recorded_at"`
}
