package market

import "github.com/shopspring/decimal"

// Signals are the raw market observations for one issuer, gathered by the
// caller over the windows configured in Params.
type Signals struct {
	HoldersGained   int64     `json:"holders_gained"`
	HoldersBefore   int64     `json:"holders_before"`
	EngagementScore int64     `json:"engagement_score"`
	PostCount       int64     `json:"post_count"`
	VolumeShares    int64     `json:"volume_shares"`
	DividendsToday  int64     `json:"dividends_today"`
	MarketCap       int64     `json:"market_cap"`
	Trust           TrustTier `json:"trust"`
}

// Factor is one term of the price product, kept for explainability.
type Factor struct {
	Name       string          `json:"name"`
	Signal     decimal.Decimal `json:"signal"`
	Weight     decimal.Decimal `json:"weight"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Quote is the output of the pricing formula.
type Quote struct {
	Price   int64    `json:"price"`
	Factors []Factor `json:"factors"`
}

// EngagementWeight folds one post's interaction counts into a single score.
func EngagementWeight(likes, comments, shares int64) int64 {
	return likes + 2*comments + 3*shares
}

// Price evaluates floor(BasePrice × Π(1 + weight·signal)) and clamps the
// result to MinPrice. It is deterministic for a given Params and Signals.
func (p Params) Price(sig Signals) Quote {
	one := decimal.NewFromInt(1)
	factors := []Factor{
		p.factor("growth", p.growthSignal(sig), p.Weights.Growth),
		p.factor("engagement", p.engagementSignal(sig), p.Weights.Engagement),
		p.factor("volume", p.volumeSignal(sig), p.Weights.Volume),
		p.factor("yield", p.yieldSignal(sig), p.Weights.Yield),
		p.factor("trust", decimal.NewFromFloat(TrustScore(sig.Trust)), p.Weights.Trust),
	}

	product := one
	for _, f := range factors {
		product = product.Mul(f.Multiplier)
	}

	price := decimal.NewFromInt(p.BasePrice).Mul(product).Floor().IntPart()
	if price < p.MinPrice {
		price = p.MinPrice
	}
	return Quote{Price: price, Factors: factors}
}

func (p Params) factor(name string, signal decimal.Decimal, weight float64) Factor {
	w := decimal.NewFromFloat(weight)
	return Factor{
		Name:       name,
		Signal:     signal,
		Weight:     w,
		Multiplier: decimal.NewFromInt(1).Add(w.Mul(signal)),
	}
}

// growthSignal is the relative change in holders over the growth window. A
// stock with no prior holders that gained some scores a fixed bonus.
func (p Params) growthSignal(sig Signals) decimal.Decimal {
	if sig.HoldersGained <= 0 {
		return decimal.Zero
	}
	if sig.HoldersBefore <= 0 {
		return capAt(decimal.NewFromFloat(p.NewHolderGrowth), p.Caps.Growth)
	}
	return capAt(ratio(sig.HoldersGained, sig.HoldersBefore), p.Caps.Growth)
}

func (p Params) engagementSignal(sig Signals) decimal.Decimal {
	if sig.PostCount <= 0 || sig.EngagementScore <= 0 {
		return decimal.Zero
	}
	perPost := ratio(sig.EngagementScore, sig.PostCount)
	return capAt(perPost.Div(decimal.NewFromInt(p.EngagementDivisor)), p.Caps.Engagement)
}

func (p Params) volumeSignal(sig Signals) decimal.Decimal {
	if sig.VolumeShares <= 0 {
		return decimal.Zero
	}
	return capAt(ratio(sig.VolumeShares, p.VolumeDivisor), p.Caps.Volume)
}

// yieldSignal annualizes today's dividend payouts against market cap.
func (p Params) yieldSignal(sig Signals) decimal.Decimal {
	if sig.MarketCap <= 0 || sig.DividendsToday <= 0 {
		return decimal.Zero
	}
	annual := decimal.NewFromInt(sig.DividendsToday).Mul(decimal.NewFromInt(p.DaysPerYear))
	return capAt(annual.Div(decimal.NewFromInt(sig.MarketCap)), p.Caps.Yield)
}

func ratio(num, den int64) decimal.Decimal {
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
}

func capAt(v decimal.Decimal, limit float64) decimal.Decimal {
	c := decimal.NewFromFloat(limit)
	if v.GreaterThan(c) {
		return c
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
