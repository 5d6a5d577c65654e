package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleDerived(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		c      Candle
		change float64
		body   float64
		rng    float64
	}{
		{"up", Candle{Open: 100, High: 112, Low: 98, Close: 110}, 0.10, 10, 14},
		{"down", Candle{Open: 100, High: 101, Low: 89, Close: 90}, -0.10, 10, 12},
		{"zero open", Candle{Open: 0, High: 5, Low: 0, Close: 5}, 0, 5, 5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.change, tt.c.ChangeRatio(), 1e-12)
			assert.InDelta(t, tt.body, tt.c.BodySize(), 1e-12)
			assert.InDelta(t, tt.rng, tt.c.RangeSize(), 1e-12)
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "005930", Code("005930.KS"))
	assert.Equal(t, "AAPL", Code("AAPL"))
	assert.Equal(t, "", Code(""))
}

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"D", 24 * time.Hour, false},
		{"", 24 * time.Hour, false},
		{"W", 7 * 24 * time.Hour, false},
		{"15m", 15 * time.Minute, false},
		{"1h", time.Hour, false},
		{"2d", 48 * time.Hour, false},
		{"xm", 0, true},
		{"5q", 0, true},
	}
	for _, tt := range tests {
		got, err := TimeframeDuration(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMockDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	m := NewMock(123)
	m.Now = func() time.Time { return now }

	a, err := m.GetCandles(context.Background(), "AAA", "D", 30)
	require.NoError(t, err)
	b, err := m.GetCandles(context.Background(), "AAA", "D", 30)
	require.NoError(t, err)

	require.Len(t, a, 30)
	assert.Equal(t, a, b)

	for i := 1; i < len(a); i++ {
		assert.True(t, a[i].Time.After(a[i-1].Time))
		assert.GreaterOrEqual(t, a[i].High, a[i].Low)
	}

	other, err := m.GetCandles(context.Background(), "BBB", "D", 30)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Close, other[0].Close)
}

func TestMockUniverse(t *testing.T) {
	m := NewMock(1)

	assert.Equal(t, []string{"X", "Y"}, m.GetUniverse("custom", []string{"X", "Y"}))
	assert.Empty(t, m.GetUniverse("CUSTOM", nil))
	assert.Equal(t, DefaultSymbols, m.GetUniverse(UniverseKOSPI, nil))
	assert.Equal(t, []string{"096770.KQ"}, m.GetUniverse(UniverseKOSDAQ, nil))
	assert.Equal(t, DefaultSymbols, m.GetUniverse("nope", nil))
	assert.Equal(t, "Samsung Electronics", m.GetName("005930.KS"))
}

func TestMockCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMock(1).GetCandles(ctx, "AAA", "D", 5)
	assert.ErrorIs(t, err, context.Canceled)
}
