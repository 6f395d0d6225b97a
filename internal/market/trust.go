package market

import "github.com/shopspring/decimal"

// TrustTier is an issuer's reputation band, derived from market capitalization.
type TrustTier string

const (
	TrustBronze   TrustTier = "BRONZE"
	TrustSilver   TrustTier = "SILVER"
	TrustGold     TrustTier = "GOLD"
	TrustPlatinum TrustTier = "PLATINUM"
	TrustDiamond  TrustTier = "DIAMOND"
	TrustMaster   TrustTier = "MASTER"
	TrustLegend   TrustTier = "LEGEND"
)

// TrustLevel is one band of the trust table.
type TrustLevel struct {
	Tier             TrustTier `json:"tier"`
	MinMarketCap     int64     `json:"min_market_cap"`
	RewardMultiplier float64   `json:"reward_multiplier"`
	DividendRate     float64   `json:"dividend_rate"`
	PriceScore       float64   `json:"price_score"`
}

// trustTable is ordered by ascending MinMarketCap.
var trustTable = []TrustLevel{
	{Tier: TrustBronze, MinMarketCap: 0, RewardMultiplier: 1.00, DividendRate: 0.05, PriceScore: 0},
	{Tier: TrustSilver, MinMarketCap: 10_000, RewardMultiplier: 1.10, DividendRate: 0.08, PriceScore: 0.25},
	{Tier: TrustGold, MinMarketCap: 50_000, RewardMultiplier: 1.25, DividendRate: 0.10, PriceScore: 0.5},
	{Tier: TrustPlatinum, MinMarketCap: 250_000, RewardMultiplier: 1.50, DividendRate: 0.12, PriceScore: 1.0},
	{Tier: TrustDiamond, MinMarketCap: 1_000_000, RewardMultiplier: 1.75, DividendRate: 0.15, PriceScore: 1.5},
	{Tier: TrustMaster, MinMarketCap: 5_000_000, RewardMultiplier: 2.00, DividendRate: 0.18, PriceScore: 2.0},
	{Tier: TrustLegend, MinMarketCap: 25_000_000, RewardMultiplier: 2.50, DividendRate: 0.20, PriceScore: 2.5},
}

// TrustLevels returns a copy of the trust table, lowest band first.
func TrustLevels() []TrustLevel {
	out := make([]TrustLevel, len(trustTable))
	copy(out, trustTable)
	return out
}

// TrustLevelFor returns the highest band whose threshold marketCap reaches.
// Negative caps land in the lowest band.
func TrustLevelFor(marketCap int64) TrustLevel {
	level := trustTable[0]
	for _, l := range trustTable[1:] {
		if marketCap < l.MinMarketCap {
			break
		}
		level = l
	}
	return level
}

// TrustScore returns the pricing score of a trust tier; unknown tiers score 0.
func TrustScore(t TrustTier) float64 {
	for _, l := range trustTable {
		if l.Tier == t {
			return l.PriceScore
		}
	}
	return 0
}

// EffectiveDividendRate reconciles the per-stock rate chosen at issuance with
// the trust-derived rate: the higher of the two applies.
func EffectiveDividendRate(stockRate float64, marketCap int64) float64 {
	trustRate := TrustLevelFor(marketCap).DividendRate
	if stockRate > trustRate {
		return stockRate
	}
	return trustRate
}

// DividendPool returns floor(amount × rate). Rates outside [0, 1] are clamped.
func DividendPool(amount int64, rate float64) int64 {
	if amount <= 0 || rate <= 0 {
		return 0
	}
	if rate >= 1 {
		return amount
	}
	return decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate)).Floor().IntPart()
}

// ProRata returns floor(pool × part / whole) without intermediate overflow.
// It returns 0 when whole is not positive.
func ProRata(pool, part, whole int64) int64 {
	if whole <= 0 || pool <= 0 || part <= 0 {
		return 0
	}
	q, _ := decimal.NewFromInt(pool).Mul(decimal.NewFromInt(part)).QuoRem(decimal.NewFromInt(whole), 0)
	return q.IntPart()
}

// AveragePrice returns the floor volume-weighted cost basis after adding
// qty shares that cost `cost` in total to a position of oldShares at oldAvg.
func AveragePrice(oldAvg, oldShares, cost, qty int64) int64 {
	if oldShares <= 0 {
		if qty <= 0 {
			return 0
		}
		return ProRata(cost, 1, qty)
	}
	num := decimal.NewFromInt(oldAvg).Mul(decimal.NewFromInt(oldShares)).Add(decimal.NewFromInt(cost))
	q, _ := num.QuoRem(decimal.NewFromInt(oldShares+qty), 0)
	return q.IntPart()
}
