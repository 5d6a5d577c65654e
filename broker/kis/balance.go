package kis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/risk"
)

func (g *Gateway) balanceQuery() url.Values {
	q := url.Values{}
	q.Set("CANO", g.cano)
	q.Set("ACNT_PRDT_CD", g.product)
	q.Set("AFHR_FLPR_YN", "N")
	q.Set("OFL_YN", "N")
	q.Set("INQR_DVSN", "02")
	q.Set("UNPR_DVSN", "01")
	q.Set("FUND_STTL_ICLD_YN", "N")
	q.Set("FNCG_AMT_AUTO_RDPT_YN", "N")
	q.Set("PRCS_DVSN", "01")
	q.Set("CTX_AREA_FK100", "")
	q.Set("CTX_AREA_NK100", "")
	return q
}

// GetPositions prefers the remote balance and falls back to the journal's
// last-known snapshot on any remote failure or an empty balance. It never
// fails; the worst case is an empty slice.
func (g *Gateway) GetPositions(ctx context.Context) []risk.Position {
	positions, err := g.fetchRemote(ctx)
	if err != nil {
		g.log.Debug().Err(err).Msg("kis balance unavailable, using local snapshot")
	}
	if len(positions) == 0 {
		local, err := g.store.GetPositions()
		if err != nil {
			g.log.Warn().Err(err).Msg("local positions unavailable")
			local = []risk.Position{}
		}
		positions = local
	}
	g.cachePositions(positions)
	return positions
}

func (g *Gateway) fetchRemote(ctx context.Context) ([]risk.Position, error) {
	if !g.Enabled() || g.cano == "" {
		return nil, errors.New("remote balance disabled")
	}
	data, err := g.call(ctx, "GET", BalancePath, balanceTrIDs[g.opts.Paper], g.balanceQuery(), nil)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode balance: %v", broker.ErrData, err)
	}
	rows, ok := payload["output1"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: balance has no output1 list", broker.ErrData)
	}

	peaks := g.storedTrails()
	now := g.opts.Now()
	out := make([]risk.Position, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		p, ok := g.parseRow(row)
		if !ok {
			continue
		}
		p.TrailStop = math.Max(p.TrailStop, peaks[p.Symbol])
		p.UpdatedAt = now
		if err := g.store.UpsertPosition(p, now); err != nil {
			g.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("upsert remote position failed")
		}
		out = append(out, p)
	}
	return out, nil
}

// parseRow maps one balance row. Rows with an unreadable or non-positive
// quantity, or no symbol, are skipped; other bad fields default to 0.
func (g *Gateway) parseRow(row map[string]any) (risk.Position, bool) {
	qty, ok := num(row["hldg_qty"])
	if !ok || qty <= 0 {
		return risk.Position{}, false
	}
	code := strings.TrimSpace(str(row["pdno"]))
	if code == "" {
		return risk.Position{}, false
	}

	avg, _ := num(row["pchs_avg_pric"])
	last, _ := num(row["prpr"])
	pnl, _ := num(row["evlu_pfls_rt"])
	highest, ok := num(row["hghst_prc"])
	if !ok || highest == 0 {
		highest = last
	}

	p := risk.Position{
		Symbol:    code + g.opts.SymbolSuffix,
		Qty:       int(qty),
		AvgPrice:  avg,
		LastPrice: last,
		PnLPct:    pnl / 100,
		TrailStop: math.Max(last, highest),
	}
	if avg != 0 {
		p.TakeProfitPrice = risk.TargetPrice(avg, g.opts.TakeProfitPct)
	}
	return p, true
}

// storedTrails returns the journal's trail stop per symbol so a remote
// refresh never lowers a peak seen earlier.
func (g *Gateway) storedTrails() map[string]float64 {
	peaks := map[string]float64{}
	stored, err := g.store.GetPositions()
	if err != nil {
		g.log.Warn().Err(err).Msg("stored trail stops unavailable")
		return peaks
	}
	for _, p := range stored {
		if p.Qty > 0 {
			peaks[p.Symbol] = p.TrailStop
		}
	}
	return peaks
}

func (g *Gateway) cachePositions(ps []risk.Position) {
	g.posMu.Lock()
	defer g.posMu.Unlock()
	g.pos = append([]risk.Position(nil), ps...)
	g.posAt = g.opts.Now()
}

func (g *Gateway) dropPositions() {
	g.posMu.Lock()
	defer g.posMu.Unlock()
	g.pos, g.posAt = nil, time.Time{}
}

// positionsForGate serves the SELL inventory gate from the cache while it
// is younger than PositionsTTL.
func (g *Gateway) positionsForGate(ctx context.Context) []risk.Position {
	g.posMu.Lock()
	if !g.posAt.IsZero() && g.opts.Now().Sub(g.posAt) < g.opts.PositionsTTL {
		ps := append([]risk.Position(nil), g.pos...)
		g.posMu.Unlock()
		return ps
	}
	g.posMu.Unlock()
	return g.GetPositions(ctx)
}
