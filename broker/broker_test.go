package broker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  OrderRequest
		ok   bool
	}{
		{"market buy", OrderRequest{Symbol: "A", Side: Buy, Qty: 1, PriceType: Market}, true},
		{"limit sell", OrderRequest{Symbol: "A", Side: Sell, Qty: 1, PriceType: Limit, LimitPrice: 10}, true},
		{"bad side", OrderRequest{Symbol: "A", Side: "HOLD", Qty: 1, PriceType: Market}, false},
		{"zero qty", OrderRequest{Symbol: "A", Side: Buy, Qty: 0, PriceType: Market}, false},
		{"negative qty", OrderRequest{Symbol: "A", Side: Buy, Qty: -3, PriceType: Market}, false},
		{"bad price type", OrderRequest{Symbol: "A", Side: Buy, Qty: 1, PriceType: "stop"}, false},
		{"limit without price", OrderRequest{Symbol: "A", Side: Buy, Qty: 1, PriceType: Limit}, false},
		{"no symbol", OrderRequest{Side: Buy, Qty: 1, PriceType: Market}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestParseSide(t *testing.T) {
	t.Parallel()

	s, err := ParseSide(" buy ")
	require.NoError(t, err)
	assert.Equal(t, Buy, s)

	s, err = ParseSide("SELL")
	require.NoError(t, err)
	assert.Equal(t, Sell, s)

	_, err = ParseSide("short")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckInventory(t *testing.T) {
	t.Parallel()

	held := []risk.Position{{Symbol: "A", Qty: 5}}

	assert.NoError(t, CheckInventory(held, OrderRequest{Symbol: "B", Side: Buy, Qty: 100}))
	assert.NoError(t, CheckInventory(held, OrderRequest{Symbol: "A", Side: Sell, Qty: 5}))

	err := CheckInventory(held, OrderRequest{Symbol: "A", Side: Sell, Qty: 6})
	assert.ErrorIs(t, err, ErrSafetyGate)
	assert.Contains(t, err.Error(), "insufficient holdings")

	err = CheckInventory(held, OrderRequest{Symbol: "Z", Side: Sell, Qty: 1})
	assert.ErrorIs(t, err, ErrSafetyGate)
	assert.Contains(t, err.Error(), "not held")
}

func TestFailed(t *testing.T) {
	t.Parallel()

	res := Failed(errors.Join(ErrTransport, errors.New("timeout")))
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, ErrTransport)
	assert.Contains(t, res.Message, "timeout")
}

func newTestMock(t *testing.T, quote Quote) (*Mock, *journal.SQLite) {
	t.Helper()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "mock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return NewMock(j, quote, zerolog.Nop()), j
}

func TestMock_FillsAndAveragesPrice(t *testing.T) {
	t.Parallel()

	m, j := newTestMock(t, nil)
	ctx := context.Background()

	res := m.PlaceOrder(ctx, OrderRequest{Symbol: "A", Side: Buy, Qty: 10, PriceType: Limit, LimitPrice: 100})
	require.True(t, res.OK, res.Message)
	assert.NotEmpty(t, res.OrderID)

	res = m.PlaceOrder(ctx, OrderRequest{Symbol: "A", Side: Buy, Qty: 10, PriceType: Limit, LimitPrice: 110})
	require.True(t, res.OK, res.Message)

	positions := m.GetPositions(ctx)
	require.Len(t, positions, 1)
	assert.Equal(t, 20, positions[0].Qty)
	assert.InDelta(t, 105.0, positions[0].AvgPrice, 1e-9)
	assert.InDelta(t, 110.0, positions[0].TrailStop, 1e-9)

	res = m.PlaceOrder(ctx, OrderRequest{Symbol: "A", Side: Sell, Qty: 20, PriceType: Limit, LimitPrice: 120})
	require.True(t, res.OK, res.Message)

	positions = m.GetPositions(ctx)
	require.Len(t, positions, 1)
	assert.Equal(t, 0, positions[0].Qty)
	assert.Equal(t, 0.0, positions[0].AvgPrice)

	trade, err := j.GetTrade(res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "sell", trade.Side)
	assert.Equal(t, 20, trade.Qty)
}

func TestMock_MarketUsesQuote(t *testing.T) {
	t.Parallel()

	quote := func(ctx context.Context, symbol string) (float64, error) { return 70000, nil }
	m, j := newTestMock(t, quote)

	res := m.PlaceOrder(context.Background(), OrderRequest{Symbol: "005930.KS", Side: Buy, Qty: 1, PriceType: Market})
	require.True(t, res.OK, res.Message)

	trade, err := j.GetTrade(res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 70000.0, trade.Price)
	assert.Equal(t, "buy", trade.Side)
}

func TestMock_MarketWithoutQuoteFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		quote Quote
	}{
		{"no quote source", nil},
		{"quote error", func(ctx context.Context, symbol string) (float64, error) {
			return 0, errors.New("feed down")
		}},
		{"zero price", func(ctx context.Context, symbol string) (float64, error) { return 0, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, j := newTestMock(t, tt.quote)

			res := m.PlaceOrder(context.Background(), OrderRequest{Symbol: "005930.KS", Side: Buy, Qty: 1, PriceType: Market})
			assert.False(t, res.OK)
			assert.ErrorIs(t, res.Err, ErrData)
			assert.Contains(t, res.Message, "no quote")

			trades, err := j.ListTradesBetween(timeZero, timeMax)
			require.NoError(t, err)
			assert.Empty(t, trades)
			assert.Empty(t, m.GetPositions(context.Background()))
		})
	}
}

func TestMock_RefusesInvalidAndOversell(t *testing.T) {
	t.Parallel()

	m, j := newTestMock(t, nil)
	ctx := context.Background()

	res := m.PlaceOrder(ctx, OrderRequest{Symbol: "A", Side: Buy, Qty: 0, PriceType: Market})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, ErrValidation)

	res = m.PlaceOrder(ctx, OrderRequest{Symbol: "A", Side: Sell, Qty: 1, PriceType: Market})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, ErrSafetyGate)
	assert.Contains(t, res.Message, "insufficient holdings")

	trades, err := j.ListTradesBetween(timeZero, timeMax)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

var (
	timeZero = time.Unix(0, 0)
	timeMax  = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)
