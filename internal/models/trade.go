package models

// TradeSide is the direction of a trade from the trader's point of view.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an immutable execution record. The issuer is always the
// counterparty, so exactly one of BuyerID or SellerID is set.
type Trade struct {
	Record
	StockID       string    `gorm:"type:uuid;not null;index" json:"stock_id"`
	IssuerID      string    `gorm:"type:uuid;not null;index" json:"issuer_id"`
	BuyerID       *string   `gorm:"type:uuid;index" json:"buyer_id,omitempty"`
	SellerID      *string   `gorm:"type:uuid;index" json:"seller_id,omitempty"`
	Side          TradeSide `gorm:"type:varchar(8);not null" json:"side"`
	Quantity      int64     `gorm:"type:bigint;not null" json:"quantity"`
	PricePerShare int64     `gorm:"type:bigint;not null" json:"price_per_share"`
	TotalAmount   int64     `gorm:"type:bigint;not null" json:"total_amount"`
}

// TraderID returns whichever of buyer or seller is set.
func (t *Trade) TraderID() string {
	if t.BuyerID != nil {
		return *t.BuyerID
	}
	if t.SellerID != nil {
		return *t.SellerID
	}
	return ""
}
