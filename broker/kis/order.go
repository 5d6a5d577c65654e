package kis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/config"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/metrics"
	"github.com/shopspring/decimal"
)

// Order division codes.
const (
	divLimit  = "00"
	divMarket = "01"
)

type orderPayload struct {
	CANO       string `json:"CANO"`
	AcntPrdtCd string `json:"ACNT_PRDT_CD"`
	PDNO       string `json:"PDNO"`
	OrdDvsn    string `json:"ORD_DVSN"`
	OrdQty     string `json:"ORD_QTY"`
	OrdUnpr    string `json:"ORD_UNPR"`
}

type orderResponse struct {
	RtCd   string `json:"rt_cd"`
	MsgCd  string `json:"msg_cd"`
	Msg1   string `json:"msg1"`
	Output struct {
		ODNO   string `json:"ODNO"`
		OrdTmd string `json:"ORD_TMD"`
	} `json:"output"`
}

// unitPrice renders ORD_UNPR in whole won; market orders send "0".
func unitPrice(req broker.OrderRequest) string {
	if req.PriceType == broker.Market {
		return "0"
	}
	return decimal.NewFromFloat(req.LimitPrice).StringFixed(0)
}

func (g *Gateway) buildOrder(req broker.OrderRequest) orderPayload {
	div := divMarket
	if req.PriceType == broker.Limit {
		div = divLimit
	}
	return orderPayload{
		CANO:       g.cano,
		AcntPrdtCd: g.product,
		PDNO:       Code(req.Symbol),
		OrdDvsn:    div,
		OrdQty:     strconv.Itoa(req.Qty),
		OrdUnpr:    unitPrice(req),
	}
}

// PlaceOrder runs the gates in order and submits the order. Nothing is
// sent unless every gate passes. Failures are journaled and returned,
// never raised.
func (g *Gateway) PlaceOrder(ctx context.Context, req broker.OrderRequest) broker.OrderResult {
	res := g.placeOrder(ctx, req)

	outcome := metrics.OutcomeFilled
	if !res.OK {
		level := journal.LevelOrderFail
		switch {
		case errors.Is(res.Err, broker.ErrRejected):
			outcome = metrics.OutcomeRejected
		case errors.Is(res.Err, broker.ErrValidation):
			outcome = metrics.OutcomeBlocked
		case errors.Is(res.Err, broker.ErrSafetyGate):
			outcome = metrics.OutcomeBlocked
			level = journal.LevelRisk
		default:
			outcome = metrics.OutcomeTransport
		}
		g.logEvent(level, fmt.Sprintf("order failed: %s: %s", req, res.Message))
		g.log.Warn().Err(res.Err).Str("order", req.String()).Msg("kis order failed")
	}
	metrics.OrdersTotal.WithLabelValues(string(req.Side), outcome).Inc()
	return res
}

func (g *Gateway) placeOrder(ctx context.Context, req broker.OrderRequest) broker.OrderResult {
	if err := req.Validate(); err != nil {
		return broker.Failed(err)
	}
	if err := g.checkGates(req); err != nil {
		return broker.Failed(err)
	}
	if req.Side == broker.Sell {
		if err := broker.CheckInventory(g.positionsForGate(ctx), req); err != nil {
			return broker.Failed(err)
		}
	}

	trID, ok := OrderTrID(req.Side, g.opts.Paper)
	if !ok {
		return broker.Failed(fmt.Errorf("%w: no tr_id for side %s", broker.ErrValidation, req.Side))
	}
	body, err := sonic.Marshal(g.buildOrder(req))
	if err != nil {
		return broker.Failed(fmt.Errorf("%w: encode order: %v", broker.ErrData, err))
	}

	data, err := g.call(ctx, "POST", OrderPath, trID, nil, body)
	if err != nil {
		return broker.Failed(err)
	}

	var resp orderResponse
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return broker.Failed(fmt.Errorf("%w: decode order response: %v", broker.ErrData, err))
	}
	if resp.RtCd != "0" {
		msg := resp.Msg1
		if msg == "" {
			msg = "no reason given"
		}
		return broker.Failed(fmt.Errorf("%w: order rejected by broker: %s", broker.ErrRejected, msg))
	}

	orderID := resp.Output.ODNO
	if orderID == "" {
		orderID = "unknown"
	}
	g.recordFill(orderID, req)
	return broker.Filled(orderID, fmt.Sprintf("order accepted: %s #%s", req, orderID))
}

// checkGates runs the account level gates that need no network.
func (g *Gateway) checkGates(req broker.OrderRequest) error {
	if !g.Enabled() {
		return fmt.Errorf("%w: broker credentials missing, orders disabled", broker.ErrSafetyGate)
	}
	if g.opts.Mode != config.ModeLive || g.opts.Paper {
		return fmt.Errorf("%w: live orders require live mode on a non-paper account (mode=%s paper=%t)",
			broker.ErrSafetyGate, g.opts.Mode, g.opts.Paper)
	}
	hit, err := g.store.IsDailyLossLimitExceeded(g.opts.DailyLossLimitR)
	if err != nil {
		return fmt.Errorf("%w: cannot verify daily loss limit: %v", broker.ErrSafetyGate, err)
	}
	if hit {
		return fmt.Errorf("%w: daily loss limit reached, orders blocked for today", broker.ErrSafetyGate)
	}
	if g.cano == "" {
		return fmt.Errorf("%w: account number is not configured", broker.ErrSafetyGate)
	}
	return nil
}

func (g *Gateway) recordFill(orderID string, req broker.OrderRequest) {
	price := 0.0
	if req.PriceType == broker.Limit {
		price = req.LimitPrice
	}
	if err := g.store.RecordTrade(journal.TradeRecord{
		OrderID: orderID,
		Symbol:  req.Symbol,
		Side:    string(req.Side),
		Qty:     req.Qty,
		Price:   price,
		Time:    g.opts.Now(),
	}); err != nil {
		g.log.Error().Err(err).Str("order_id", orderID).Msg("record trade failed")
	}
	g.logEvent(journal.LevelInfo, fmt.Sprintf("order accepted: %s #%s", req, orderID))
	g.dropPositions()
}

func (g *Gateway) logEvent(level, msg string) {
	if err := g.store.LogEvent(level, msg); err != nil {
		g.log.Error().Err(err).Str("level", level).Msg("journal event failed")
	}
}
