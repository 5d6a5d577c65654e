package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Mock is a deterministic candle supplier. The same (seed, symbol,
// timeframe) always produces the same prices.
type Mock struct {
	Seed int64
	Now  func() time.Time

	universes map[string][]string
}

func NewMock(seed int64) *Mock {
	var kosdaq []string
	for _, s := range DefaultSymbols {
		if strings.HasSuffix(s, ".KQ") {
			kosdaq = append(kosdaq, s)
		}
	}
	if len(kosdaq) == 0 {
		kosdaq = DefaultSymbols
	}

	return &Mock{
		Seed: seed,
		Now:  time.Now,
		universes: map[string][]string{
			UniverseKOSPI:  DefaultSymbols,
			UniverseKOSDAQ: kosdaq,
		},
	}
}

func (m *Mock) rng(symbol, timeframe string) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d-%s-%s", m.Seed, symbol, timeframe)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func (m *Mock) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	delta, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}

	r := m.rng(symbol, timeframe)
	anchor := m.Now().UTC().Truncate(delta)
	price := 50000 + r.Float64()*20000

	candles := make([]Candle, 0, limit)
	for i := 0; i < limit; i++ {
		drift := uniform(r, -0.02, 0.02)
		open := math.Max(price*(1+drift/2), 1000)
		closePx := math.Max(open*(1+uniform(r, -0.015, 0.02)), 1000)
		high := math.Max(open, closePx) * (1 + uniform(r, 0, 0.01))
		low := math.Min(open, closePx) * (1 - uniform(r, 0, 0.01))

		candles = append(candles, Candle{
			Symbol: symbol,
			Time:   anchor.Add(-delta * time.Duration(limit-i)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: 1_000_000 + r.Float64()*500_000,
		})
		price = closePx
	}
	return candles, nil
}

// GetUniverse resolves a named universe. CUSTOM returns the custom list
// as given; unknown names fall back to the default symbols.
func (m *Mock) GetUniverse(name string, custom []string) []string {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == UniverseCustom {
		return append([]string(nil), custom...)
	}
	if u, ok := m.universes[key]; ok {
		return append([]string(nil), u...)
	}
	return append([]string(nil), DefaultSymbols...)
}

func (m *Mock) GetName(symbol string) string {
	return Name(symbol)
}
