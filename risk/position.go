package risk

import (
	"math"
	"time"
)

// Position is a held equity position. The journal owns the record; the
// risk code only recomputes LastPrice, PnLPct and TrailStop.
type Position struct {
	Symbol          string    `json:"symbol"`
	Qty             int       `json:"qty"`
	AvgPrice        float64   `json:"avg_price"`
	LastPrice       float64   `json:"last_price"`
	PnLPct          float64   `json:"pnl_pct"`
	TrailStop       float64   `json:"trail_stop"`
	HardStop        float64   `json:"hard_stop"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PnL returns the unrealized return as a ratio. A non-zero PnLPct wins;
// otherwise it is derived from the prices, 0 when AvgPrice is 0.
func (p Position) PnL() float64 {
	if p.PnLPct != 0 {
		return p.PnLPct
	}
	if p.AvgPrice == 0 {
		return 0
	}
	return (p.LastPrice - p.AvgPrice) / p.AvgPrice
}

// Enrich applies a fresh last price. PnLPct is recomputed when AvgPrice is
// set and TrailStop ratchets up to the highest price seen; it never drops.
// A non-positive lastPrice leaves the price fields untouched.
func Enrich(p Position, lastPrice float64) Position {
	if lastPrice > 0 {
		p.LastPrice = lastPrice
	}
	if p.AvgPrice != 0 {
		p.PnLPct = (p.LastPrice - p.AvgPrice) / p.AvgPrice
	}
	p.TrailStop = math.Max(p.TrailStop, p.LastPrice)
	return p
}

// Held returns the quantity held for symbol across positions.
func Held(positions []Position, symbol string) int {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p.Qty
		}
	}
	return 0
}
