package market

import (
	"math"
	"time"
)

// Candle is one OHLCV bar for a symbol. Suppliers return candles ordered
// ascending by Time and never mutate them afterwards.
type Candle struct {
	Symbol string
	time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ChangeRatio is (close-open)/open, 0 when open is 0.
func (c Candle) ChangeRatio() float64 {
	if c.Open == 0 {
		return 0
	}
	return (c.Close - c.Open) / c.Open
}

func (c Candle) BodySize() float64 {
	return math.Abs(c.Close - c.Open)
}

func (c Candle) RangeSize() float64 {
	return c.High - c.Low
}

// Series is a symbol with its candle history. Slices of Series keep the
// caller's ordering, which the scorer relies on for stable tie-breaks.
type Series struct {
	Symbol  string
	Candles []Candle
}

// Last returns the most recent candle, if any.
func (s Series) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}
