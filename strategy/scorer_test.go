package strategy

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(closes []float64, volumes []float64) []market.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		out[i] = market.Candle{
			Symbol: "T",
			Time:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: v,
		}
	}
	return out
}

func TestScore_InsufficientData(t *testing.T) {
	t.Parallel()

	sc := NewScorer(DefaultWeights())
	for n := 0; n < MinCandles; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		score, reasons := sc.Score(series(closes, nil))
		assert.Equal(t, 0.0, score, "n=%d", n)
		assert.Equal(t, []string{InsufficientData}, reasons, "n=%d", n)
	}
}

func TestMeasure_KnownValues(t *testing.T) {
	t.Parallel()

	closes := []float64{100, 101, 99, 102, 104, 103, 105, 107, 106, 110}
	volumes := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 55}
	candles := series(closes, volumes)
	// give the latest bar a body and a range
	candles[9].Open = 106
	candles[9].High = 111
	candles[9].Low = 105

	m, ok := Measure(candles)
	require.True(t, ok)

	assert.Equal(t, 9, m.Lookback)
	assert.InDelta(t, (110.0-106.0)/106.0*100, m.ChangePct, 1e-9)
	assert.InDelta(t, 10.0, m.MomentumPct, 1e-9)

	var returns []float64
	for i := 1; i < len(closes); i++ {
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	assert.InDelta(t, math.Sqrt(variance), m.VolatilityPct, 1e-6)

	// 55 sorts sixth of ten volumes
	assert.InDelta(t, 0.6, m.VolumeRank, 1e-12)
	assert.InDelta(t, 4.0/6.0, m.BodyRatio, 1e-12)
}

func TestMeasure_VolumeWindowIsTrailing20(t *testing.T) {
	t.Parallel()

	n := 30
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
		volumes[i] = float64(i + 1)
	}
	// latest is the largest volume of the trailing window
	m, ok := Measure(series(closes, volumes))
	require.True(t, ok)
	assert.Equal(t, MaxLookback, m.Lookback)
	assert.InDelta(t, 1.0, m.VolumeRank, 1e-12)
	assert.InDelta(t, 0.0, m.VolatilityPct, 1e-12)
	assert.InDelta(t, 0.0, m.BodyRatio, 1e-12)
}

func TestScore_Formula(t *testing.T) {
	t.Parallel()

	closes := []float64{100, 101, 99, 102, 104, 103, 105, 107, 106, 110}
	candles := series(closes, nil)
	w := Weights{Return: 2, Intensity: 0.5, Volume: 0.3}
	sc := NewScorer(w)

	m, ok := Measure(candles)
	require.True(t, ok)
	want := m.ChangePct*2 + m.MomentumPct*0.5 + (1-math.Min(m.VolatilityPct, 10)/10)*20 + m.VolumeRank*0.3*100 + m.BodyRatio*15

	score, reasons := sc.Score(candles)
	assert.InDelta(t, want, score, 1e-9)
	require.Len(t, reasons, 5)
	assert.Contains(t, reasons[0], "daily change")
	assert.Contains(t, reasons[1], "momentum(9)")
}

func TestScore_ZeroPricesStayFinite(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 12)
	score, _ := NewScorer(DefaultWeights()).Score(series(closes, nil))
	assert.False(t, math.IsNaN(score))
	assert.False(t, math.IsInf(score, 0))
}

func TestScreenCandidates_OrderAndTopN(t *testing.T) {
	t.Parallel()

	up := make([]float64, 15)
	flat := make([]float64, 15)
	down := make([]float64, 15)
	for i := range up {
		up[i] = 100 + float64(i)
		flat[i] = 100
		down[i] = 100 - float64(i)
	}

	sc := NewScorer(DefaultWeights())
	universe := []market.Series{
		{Symbol: "FLAT", Candles: series(flat, nil)},
		{Symbol: "DOWN", Candles: series(down, nil)},
		{Symbol: "UP", Candles: series(up, nil)},
		{Symbol: "SHORT", Candles: series(up[:3], nil)},
	}

	got := sc.ScreenCandidates(universe, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "UP", got[0].Symbol)
	assert.Equal(t, "FLAT", got[1].Symbol)

	assert.Empty(t, sc.ScreenCandidates(universe, 0))
	assert.Len(t, sc.ScreenCandidates(universe, 10), 4)
}

func TestScreenCandidates_StableTies(t *testing.T) {
	t.Parallel()

	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 50
	}
	sc := NewScorer(DefaultWeights())
	universe := []market.Series{
		{Symbol: "B", Candles: series(flat, nil)},
		{Symbol: "A", Candles: series(flat, nil)},
		{Symbol: "C", Candles: series(flat, nil)},
	}

	got := sc.ScreenCandidates(universe, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{got[0].Symbol, got[1].Symbol, got[2].Symbol})
}

func TestScreenCandidates_DropsNonFinite(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 100
	}
	good := series(closes, nil)
	bad := series(closes, nil)
	bad[len(bad)-1].Close = math.Inf(1)

	sc := NewScorer(DefaultWeights())
	got := sc.ScreenCandidates([]market.Series{
		{Symbol: "BAD", Candles: bad},
		{Symbol: "GOOD", Candles: good},
	}, 5)

	require.Len(t, got, 1)
	assert.Equal(t, "GOOD", got[0].Symbol)
}

func TestScreenCandidates_Deterministic(t *testing.T) {
	t.Parallel()

	m := market.NewMock(42)
	m.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	s := NewScanner(NewScorer(DefaultWeights()), m, zerolog.Nop())

	universe := s.Collect(context.Background(), market.DefaultSymbols)
	a := s.Scorer.ScreenCandidates(universe, 5)
	b := s.Scorer.ScreenCandidates(universe, 5)
	assert.Equal(t, a, b)
}

func TestScreenMap_UsesGivenOrder(t *testing.T) {
	t.Parallel()

	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 10
	}
	sc := NewScorer(DefaultWeights())
	by := map[string][]market.Candle{"X": series(flat, nil), "Y": series(flat, nil)}

	got := sc.ScreenMap(by, []string{"Y", "X", "Z"}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "Y", got[0].Symbol)
	assert.Equal(t, "X", got[1].Symbol)
	assert.Equal(t, "Z", got[2].Symbol)
	assert.Equal(t, 0.0, got[2].Score)
}

type failingSupplier struct {
	market.Supplier
	fail string
}

func (f failingSupplier) GetCandles(ctx context.Context, symbol, tf string, limit int) ([]market.Candle, error) {
	if symbol == f.fail {
		return nil, errors.New("boom")
	}
	return f.Supplier.GetCandles(ctx, symbol, tf, limit)
}

func TestScanner_FailSoftAndNames(t *testing.T) {
	t.Parallel()

	m := market.NewMock(7)
	sup := failingSupplier{Supplier: m, fail: "000660.KS"}
	s := NewScanner(NewScorer(DefaultWeights()), sup, zerolog.Nop())
	s.Names = func(symbol string) string {
		if symbol == "005930.KS" {
			return "cached"
		}
		return ""
	}

	signals, universe := s.Scan(context.Background(), []string{"005930.KS", "000660.KS"}, 2)
	require.Len(t, universe, 2)
	assert.Empty(t, universe[1].Candles)
	require.Len(t, signals, 2)

	names := map[string]string{}
	for _, sig := range signals {
		names[sig.Symbol] = sig.Name
	}
	assert.Equal(t, "cached", names["005930.KS"])
	assert.Equal(t, "SK hynix", names["000660.KS"])
}

func TestSignalSummary(t *testing.T) {
	s := Signal{Symbol: "AAA", Score: 12.346, Reasons: []string{"a", "b"}, Name: "Acme"}
	assert.Equal(t, "AAA Acme (score=12.35) - a, b", s.Summary())
	assert.Equal(t, "B (score=0.00) - N/A", Signal{Symbol: "B"}.Summary())
}
