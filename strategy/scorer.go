// Package strategy ranks symbols from their candle history.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rustyeddy/equitrader/market"
)

const (
	MinCandles   = 10
	MaxLookback  = 20
	VolumeWindow = 20

	// InsufficientData is the single reason given for short histories.
	InsufficientData = "insufficient data"
)

// Weights are the configurable coefficients of the linear score.
type Weights struct {
	Return    float64 `json:"return_weight" yaml:"return_weight"`
	Intensity float64 `json:"intensity_weight" yaml:"intensity_weight"`
	Volume    float64 `json:"volume_weight" yaml:"volume_weight"`
}

func DefaultWeights() Weights {
	return Weights{Return: 1.0, Intensity: 1.0, Volume: 0.5}
}

// Metrics are the intermediate values a score is built from.
type Metrics struct {
	ChangePct     float64
	MomentumPct   float64
	Lookback      int
	VolatilityPct float64
	VolumeRank    float64
	BodyRatio     float64
}

type Scorer struct {
	Weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{Weights: w}
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// Measure computes the scoring inputs. ok is false for fewer than
// MinCandles bars.
func Measure(candles []market.Candle) (m Metrics, ok bool) {
	if len(candles) < MinCandles {
		return Metrics{}, false
	}

	last := len(candles) - 1
	latest := candles[last]

	m.ChangePct = pctChange(candles[last-1].Close, latest.Close)

	m.Lookback = MaxLookback
	if last < m.Lookback {
		m.Lookback = last
	}
	m.MomentumPct = pctChange(candles[last-m.Lookback].Close, latest.Close)

	returns := make([]float64, 0, m.Lookback)
	for i := len(candles) - m.Lookback; i < len(candles); i++ {
		returns = append(returns, pctChange(candles[i-1].Close, candles[i].Close))
	}
	// talib.StdDev is the population deviation over the trailing window.
	sd := talib.StdDev(returns, m.Lookback, 1.0)
	m.VolatilityPct = sd[len(sd)-1]

	start := len(candles) - VolumeWindow
	if start < 0 {
		start = 0
	}
	window := make([]float64, 0, VolumeWindow)
	for _, c := range candles[start:] {
		window = append(window, c.Volume)
	}
	sort.Float64s(window)
	pos := sort.SearchFloat64s(window, latest.Volume)
	m.VolumeRank = float64(pos+1) / float64(len(window))

	if r := latest.RangeSize(); r != 0 {
		m.BodyRatio = latest.BodySize() / r
	}
	return m, true
}

// Score returns the weighted score and its human-readable reasons. It never
// fails: short histories score 0 with a single InsufficientData reason.
func (s *Scorer) Score(candles []market.Candle) (float64, []string) {
	m, ok := Measure(candles)
	if !ok {
		return 0, []string{InsufficientData}
	}

	w := s.Weights
	score := m.ChangePct*w.Return +
		m.MomentumPct*w.Intensity +
		(1-math.Min(m.VolatilityPct, 10)/10)*20 +
		m.VolumeRank*w.Volume*100 +
		m.BodyRatio*15

	reasons := []string{
		fmt.Sprintf("daily change %.2f%%", m.ChangePct),
		fmt.Sprintf("momentum(%d) %.2f%%", m.Lookback, m.MomentumPct),
		fmt.Sprintf("volatility %.2f%%", m.VolatilityPct),
		fmt.Sprintf("volume rank %.2f", m.VolumeRank),
		fmt.Sprintf("body/range %.2f", m.BodyRatio),
	}
	return score, reasons
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ScreenCandidates scores every series, drops non-finite scores and returns
// the topN best. Equal scores keep the order of universe.
func (s *Scorer) ScreenCandidates(universe []market.Series, topN int) []Signal {
	signals := make([]Signal, 0, len(universe))
	for _, series := range universe {
		score, reasons := s.Score(series.Candles)
		if !finite(score) {
			continue
		}
		signals = append(signals, Signal{
			Symbol:  series.Symbol,
			Score:   score,
			Reasons: reasons,
		})
	}
	return TopN(signals, topN)
}

// ScreenMap is ScreenCandidates over a map, iterated in the given symbol
// order. Symbols missing from the map score as empty histories.
func (s *Scorer) ScreenMap(bySymbol map[string][]market.Candle, order []string, topN int) []Signal {
	universe := make([]market.Series, 0, len(order))
	for _, sym := range order {
		universe = append(universe, market.Series{Symbol: sym, Candles: bySymbol[sym]})
	}
	return s.ScreenCandidates(universe, topN)
}
