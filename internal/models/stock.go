package models

import (
	"time"

	"creatorx/internal/market"
)

// Stock is an issuer's share offering. There is at most one per issuer.
//
// Share counters obey IssuedShares <= AvailableShares <= TotalShares <=
// market.TierMaxShares(Tier). IssuedShares always equals the sum of the
// stock's holdings.
type Stock struct {
	Base
	IssuerID           string      `gorm:"type:uuid;uniqueIndex;not null" json:"issuer_id"`
	SharePrice         int64       `gorm:"type:bigint;not null" json:"share_price"`
	PreviousPrice      int64       `gorm:"type:bigint;not null" json:"previous_price"`
	TotalShares        int64       `gorm:"type:bigint;not null" json:"total_shares"`
	AvailableShares    int64       `gorm:"type:bigint;not null" json:"available_shares"`
	IssuedShares       int64       `gorm:"type:bigint;not null" json:"issued_shares"`
	DividendRate       float64     `gorm:"not null" json:"dividend_rate"`
	Tier               market.Tier `gorm:"type:varchar(16);not null" json:"tier"`
	ShareholderCount   int64       `gorm:"type:bigint;not null" json:"shareholder_count"`
	TransactionCount   int64       `gorm:"type:bigint;not null" json:"transaction_count"`
	MarketCap          int64       `gorm:"type:bigint;not null;index" json:"market_cap"`
	TotalDividendsPaid int64       `gorm:"type:bigint;not null" json:"total_dividends_paid"`
	IssueCount         int64       `gorm:"type:bigint;not null" json:"issue_count"`
	LastIssuedAt       time.Time   `gorm:"not null" json:"last_issued_at"`

	Issuer *User `gorm:"foreignKey:IssuerID" json:"issuer,omitempty"`
}

// OfferingRemaining is the number of released primary shares still for sale.
func (s *Stock) OfferingRemaining() int64 {
	return s.AvailableShares - s.IssuedShares
}

// SetPrice moves the current price into PreviousPrice and refreshes MarketCap.
func (s *Stock) SetPrice(price int64) {
	s.PreviousPrice = s.SharePrice
	s.SharePrice = price
	s.MarketCap = price * s.TotalShares
}
