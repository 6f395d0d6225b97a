package models

// AuditLog records market actions for reconciliation. UserID is nil for
// actions taken by the pipeline rather than a signed-in user.
type AuditLog struct {
	Base
	UserID       *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action       string  `gorm:"not null" json:"action"`
	ResourceType string  `gorm:"not null" json:"resource_type"`
	ResourceID   string  `gorm:"index" json:"resource_id"`
	IPAddress    string  `json:"ip_address"`
	Changes      string  `json:"changes,omitempty"`
}

// Audit actions.
const (
	AuditActionRegister            = "REGISTER"
	AuditActionLogin               = "LOGIN"
	AuditActionIssueStock          = "ISSUE_STOCK"
	AuditActionBuyShares           = "BUY_SHARES"
	AuditActionSellShares          = "SELL_SHARES"
	AuditActionUpgradeTier         = "UPGRADE_TIER"
	AuditActionDeposit             = "DEPOSIT"
	AuditActionAwardEarnings       = "AWARD_EARNINGS"
	AuditActionDistributeDividends = "DISTRIBUTE_DIVIDENDS"
)
