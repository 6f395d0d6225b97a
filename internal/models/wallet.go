package models

// Wallet holds a user's in-app currency. Balance never goes negative; it is
// only changed through conditional updates in the ledger service.
type Wallet struct {
	Base
	UserID  string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Balance int64  `gorm:"type:bigint;not null;check:chk_wallets_balance,balance >= 0" json:"balance"`
}

// LedgerKind classifies a wallet movement.
type LedgerKind string

const (
	LedgerKindDeposit       LedgerKind = "deposit"
	LedgerKindTradeBuy      LedgerKind = "trade_buy"
	LedgerKindTradeSell     LedgerKind = "trade_sell"
	LedgerKindIssuerSale    LedgerKind = "issuer_sale"
	LedgerKindIssuerBuyback LedgerKind = "issuer_buyback"
	LedgerKindEarning       LedgerKind = "earning"
	LedgerKindDividend      LedgerKind = "dividend"
)

// LedgerEntry is an append-only record of one wallet movement. Amount is
// signed: credits are positive, debits negative.
type LedgerEntry struct {
	Record
	UserID       string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind         LedgerKind `gorm:"type:varchar(24);not null" json:"kind"`
	Amount       int64      `gorm:"type:bigint;not null" json:"amount"`
	BalanceAfter int64      `gorm:"type:bigint;not null" json:"balance_after"`
	Reference    string     `gorm:"index" json:"reference,omitempty"`
}
