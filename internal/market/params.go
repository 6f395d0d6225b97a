package market

import (
	"fmt"
	"time"
)

// Weights scale each normalized pricing signal before it enters the product.
type Weights struct {
	Growth     float64 `yaml:"growth" json:"growth"`
	Engagement float64 `yaml:"engagement" json:"engagement"`
	Volume     float64 `yaml:"volume" json:"volume"`
	Yield      float64 `yaml:"yield" json:"yield"`
	Trust      float64 `yaml:"trust" json:"trust"`
}

// Caps bound each normalized signal from above. Trust is bounded by the
// trust table itself.
type Caps struct {
	Growth     float64 `yaml:"growth" json:"growth"`
	Engagement float64 `yaml:"engagement" json:"engagement"`
	Volume     float64 `yaml:"volume" json:"volume"`
	Yield      float64 `yaml:"yield" json:"yield"`
}

// Params configures the pricing formula and the activity windows used to
// gather its signals.
type Params struct {
	BasePrice         int64         `yaml:"base_price" json:"base_price"`
	MinPrice          int64         `yaml:"min_price" json:"min_price"`
	GrowthWindow      time.Duration `yaml:"growth_window" json:"growth_window"`
	ActivityWindow    time.Duration `yaml:"activity_window" json:"activity_window"`
	NewHolderGrowth   float64       `yaml:"new_holder_growth" json:"new_holder_growth"`
	EngagementDivisor int64         `yaml:"engagement_divisor" json:"engagement_divisor"`
	VolumeDivisor     int64         `yaml:"volume_divisor" json:"volume_divisor"`
	DaysPerYear       int64         `yaml:"days_per_year" json:"days_per_year"`
	Weights           Weights       `yaml:"weights" json:"weights"`
	Caps              Caps          `yaml:"caps" json:"caps"`
}

// DefaultParams returns the stock market's production tuning.
func DefaultParams() Params {
	return Params{
		BasePrice:         100,
		MinPrice:          1,
		GrowthWindow:      30 * 24 * time.Hour,
		ActivityWindow:    7 * 24 * time.Hour,
		NewHolderGrowth:   0.5,
		EngagementDivisor: 100,
		VolumeDivisor:     1000,
		DaysPerYear:       365,
		Weights: Weights{
			Growth:     0.30,
			Engagement: 0.30,
			Volume:     0.20,
			Yield:      0.10,
			Trust:      0.10,
		},
		Caps: Caps{
			Growth:     2,
			Engagement: 3,
			Volume:     2,
			Yield:      1,
		},
	}
}

// Validate rejects parameter sets that would make the formula meaningless.
func (p Params) Validate() error {
	if p.BasePrice <= 0 {
		return fmt.Errorf("base_price must be positive, got %d", p.BasePrice)
	}
	if p.MinPrice <= 0 {
		return fmt.Errorf("min_price must be positive, got %d", p.MinPrice)
	}
	if p.GrowthWindow <= 0 || p.ActivityWindow <= 0 {
		return fmt.Errorf("growth_window and activity_window must be positive")
	}
	if p.EngagementDivisor <= 0 || p.VolumeDivisor <= 0 || p.DaysPerYear <= 0 {
		return fmt.Errorf("engagement_divisor, volume_divisor and days_per_year must be positive")
	}
	for name, w := range map[string]float64{
		"growth":     p.Weights.Growth,
		"engagement": p.Weights.Engagement,
		"volume":     p.Weights.Volume,
		"yield":      p.Weights.Yield,
		"trust":      p.Weights.Trust,
	} {
		if w < 0 {
			return fmt.Errorf("weight %s must not be negative", name)
		}
	}
	if p.Caps.Growth < 0 || p.Caps.Engagement < 0 || p.Caps.Volume < 0 || p.Caps.Yield < 0 {
		return fmt.Errorf("caps must not be negative")
	}
	return nil
}
