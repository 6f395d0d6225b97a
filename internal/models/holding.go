package models

// Holding is one holder's position in one stock. Rows with zero shares are
// deleted, never kept.
type Holding struct {
	Base
	HolderID     string `gorm:"type:uuid;not null;uniqueIndex:idx_holdings_holder_stock" json:"holder_id"`
	StockID      string `gorm:"type:uuid;not null;uniqueIndex:idx_holdings_holder_stock;index" json:"stock_id"`
	Shares       int64  `gorm:"type:bigint;not null" json:"shares"`
	AveragePrice int64  `gorm:"type:bigint;not null" json:"average_price"`

	Stock *Stock `gorm:"foreignKey:StockID" json:"stock,omitempty"`
}
