package risk

import "fmt"

// Config holds the exit thresholds and position limits. It is loaded once
// and shared read-only.
type Config struct {
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	TrailingPct     float64 `json:"trailing_pct" yaml:"trailing_pct"`
	DailyLossLimitR float64 `json:"daily_loss_limit_r" yaml:"daily_loss_limit_r"`
	MaxPositions    int     `json:"max_positions" yaml:"max_positions"`
}

func DefaultConfig() Config {
	return Config{
		StopLossPct:     0.07,
		TakeProfitPct:   0.18,
		TrailingPct:     0.03,
		DailyLossLimitR: -3.0,
		MaxPositions:    3,
	}
}

func (c Config) Validate() error {
	if c.TrailingPct < 0 || c.TrailingPct >= 1 {
		return fmt.Errorf("risk.trailing_pct must be in [0,1), got %v", c.TrailingPct)
	}
	if c.DailyLossLimitR > 0 {
		return fmt.Errorf("risk.daily_loss_limit_r must be <= 0, got %v", c.DailyLossLimitR)
	}
	if c.MaxPositions < 0 {
		return fmt.Errorf("risk.max_positions must be >= 0, got %d", c.MaxPositions)
	}
	return nil
}
