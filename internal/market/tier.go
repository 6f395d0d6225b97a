// Package market holds the static classification tables and the pricing
// formula of the creator share market. Everything here is pure: no database,
// no clock, no logging.
package market

import (
	"fmt"
	"strings"
)

// Tier is a stock's capacity classification. It bounds how many shares a
// stock may ever issue.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
)

// TierSpec describes one row of the tier table. MinShareholders and
// MinTransactions are the thresholds a stock must reach to be promoted INTO
// this tier.
type TierSpec struct {
	Tier            Tier  `json:"tier"`
	MaxShares       int64 `json:"max_shares"`
	MinShareholders int64 `json:"min_shareholders"`
	MinTransactions int64 `json:"min_transactions"`
}

// tierTable is ordered from lowest to highest; MaxShares increases strictly.
var tierTable = []TierSpec{
	{Tier: TierBronze, MaxShares: 5_000},
	{Tier: TierSilver, MaxShares: 20_000, MinShareholders: 10, MinTransactions: 50},
	{Tier: TierGold, MaxShares: 50_000, MinShareholders: 50, MinTransactions: 250},
	{Tier: TierPlatinum, MaxShares: 150_000, MinShareholders: 200, MinTransactions: 1_000},
	{Tier: TierDiamond, MaxShares: 500_000, MinShareholders: 1_000, MinTransactions: 5_000},
}

// Tiers returns a copy of the tier table, lowest tier first.
func Tiers() []TierSpec {
	out := make([]TierSpec, len(tierTable))
	copy(out, tierTable)
	return out
}

// ParseTier normalizes s into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if tierIndex(t) < 0 {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool { return tierIndex(t) >= 0 }

// TierMaxShares returns the maximum number of shares a stock of the given tier
// may carry. Unknown tiers fall back to the BRONZE cap.
func TierMaxShares(t Tier) int64 {
	i := tierIndex(t)
	if i < 0 {
		return tierTable[0].MaxShares
	}
	return tierTable[i].MaxShares
}

// NextTier returns the tier above t. ok is false for the top tier.
func NextTier(t Tier) (next Tier, ok bool) {
	i := tierIndex(t)
	if i < 0 || i == len(tierTable)-1 {
		return "", false
	}
	return tierTable[i+1].Tier, true
}

// UpgradeCheck is the structured answer of CanUpgradeTier. Progress values are
// percentages in [0, 100].
type UpgradeCheck struct {
	CanUpgrade           bool    `json:"can_upgrade"`
	CurrentTier          Tier    `json:"current_tier"`
	NextTier             Tier    `json:"next_tier,omitempty"`
	RequiredShareholders int64   `json:"required_shareholders"`
	RequiredTransactions int64   `json:"required_transactions"`
	HolderProgress       float64 `json:"holder_progress"`
	TransactionProgress  float64 `json:"transaction_progress"`
}

// CanUpgradeTier compares a stock's shareholder and transaction counts against
// the next tier's thresholds. It never mutates anything; the caller applies
// the upgrade.
func CanUpgradeTier(current Tier, shareholderCount, transactionCount int64) UpgradeCheck {
	if !current.Valid() {
		current = TierBronze
	}
	check := UpgradeCheck{CurrentTier: current}

	next, ok := NextTier(current)
	if !ok {
		check.HolderProgress = 100
		check.TransactionProgress = 100
		return check
	}
	spec := tierTable[tierIndex(next)]
	check.NextTier = next
	check.RequiredShareholders = spec.MinShareholders
	check.RequiredTransactions = spec.MinTransactions
	check.HolderProgress = progress(shareholderCount, spec.MinShareholders)
	check.TransactionProgress = progress(transactionCount, spec.MinTransactions)
	check.CanUpgrade = shareholderCount >= spec.MinShareholders && transactionCount >= spec.MinTransactions
	return check
}

func progress(have, need int64) float64 {
	if need <= 0 || have >= need {
		return 100
	}
	if have <= 0 {
		return 0
	}
	return float64(have) * 100 / float64(need)
}

func tierIndex(t Tier) int {
	for i := range tierTable {
		if tierTable[i].Tier == t {
			return i
		}
	}
	return -1
}
