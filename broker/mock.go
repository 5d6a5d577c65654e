package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/metrics"
	"github.com/rustyeddy/equitrader/risk"
)

// Quote returns the current price for market fills.
type Quote func(ctx context.Context, symbol string) (float64, error)

// Mock fills every valid order immediately at the limit price or the
// quoted price, and keeps positions with a weighted average cost.
type Mock struct {
	store Store
	quote Quote
	log   zerolog.Logger
	now   func() time.Time

	mu sync.Mutex
}

var _ Broker = (*Mock)(nil)

func NewMock(store Store, quote Quote, log zerolog.Logger) *Mock {
	return &Mock{
		store: store,
		quote: quote,
		log:   log,
		now:   time.Now,
	}
}

func (m *Mock) PlaceOrder(ctx context.Context, req OrderRequest) OrderResult {
	res := m.place(ctx, req)
	outcome := metrics.OutcomeFilled
	if !res.OK {
		outcome = metrics.OutcomeBlocked
	}
	metrics.OrdersTotal.WithLabelValues(string(req.Side), outcome).Inc()
	return res
}

func (m *Mock) place(ctx context.Context, req OrderRequest) OrderResult {
	if err := req.Validate(); err != nil {
		m.log.Warn().Err(err).Str("order", req.String()).Msg("mock order refused")
		return Failed(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	positions, err := m.store.GetPositions()
	if err != nil {
		return Failed(fmt.Errorf("%w: load positions: %v", ErrData, err))
	}
	if err := CheckInventory(positions, req); err != nil {
		_ = m.store.LogEvent(journal.LevelRisk, err.Error())
		return Failed(err)
	}

	price := req.LimitPrice
	if req.PriceType == Market {
		q, err := m.marketPrice(ctx, req.Symbol)
		if err != nil {
			return Failed(err)
		}
		price = q
	}

	now := m.now()
	orderID := uuid.NewString()
	if err := m.store.RecordTrade(journal.TradeRecord{
		OrderID: orderID,
		Symbol:  req.Symbol,
		Side:    string(req.Side),
		Qty:     req.Qty,
		Price:   price,
		Time:    now,
	}); err != nil {
		m.log.Error().Err(err).Str("order_id", orderID).Msg("record trade failed")
	}

	pos := applyFill(positions, req, price)
	if err := m.store.UpsertPosition(pos, now); err != nil {
		m.log.Error().Err(err).Str("symbol", req.Symbol).Msg("upsert position failed")
	}

	m.log.Info().Str("order_id", orderID).Str("order", req.String()).Float64("price", price).Msg("mock order filled")
	return Filled(orderID, fmt.Sprintf("mock fill %s at %.2f", req, price))
}

// marketPrice quotes a market fill. Without a positive quote the order is
// refused rather than filled at 0.
func (m *Mock) marketPrice(ctx context.Context, symbol string) (float64, error) {
	if m.quote == nil {
		return 0, fmt.Errorf("%w: no quote source for %s", ErrData, symbol)
	}
	q, err := m.quote(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: no quote for %s: %v", ErrData, symbol, err)
	}
	if q <= 0 {
		return 0, fmt.Errorf("%w: no quote for %s: price %.2f", ErrData, symbol, q)
	}
	return q, nil
}

// applyFill folds a fill into the held position. The average price is the
// cost-weighted mean and resets to 0 when the position closes.
func applyFill(positions []risk.Position, req OrderRequest, price float64) risk.Position {
	var pos risk.Position
	for _, p := range positions {
		if p.Symbol == req.Symbol {
			pos = p
			break
		}
	}
	pos.Symbol = req.Symbol

	change := req.Qty
	if req.Side == Sell {
		change = -req.Qty
	}
	newQty := pos.Qty + change
	switch {
	case newQty == 0:
		pos.AvgPrice = 0
	case pos.Qty == 0:
		pos.AvgPrice = price
	default:
		pos.AvgPrice = (pos.AvgPrice*float64(pos.Qty) + price*float64(change)) / float64(newQty)
	}
	pos.Qty = newQty
	if price > 0 {
		pos = risk.Enrich(pos, price)
	}
	if newQty == 0 {
		pos.PnLPct = 0
		pos.TrailStop = 0
	}
	return pos
}

// GetPositions returns the store snapshot, empty on error.
func (m *Mock) GetPositions(ctx context.Context) []risk.Position {
	positions, err := m.store.GetPositions()
	if err != nil {
		m.log.Warn().Err(err).Msg("load positions failed")
		return []risk.Position{}
	}
	return positions
}
