package strategy

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/market"
)

// NameResolver resolves a display name for a symbol, "" when unknown.
type NameResolver func(symbol string) string

// Scanner pulls candles from a Supplier and ranks the universe.
type Scanner struct {
	Scorer    *Scorer
	Supplier  market.Supplier
	Names     NameResolver
	Timeframe string
	Limit     int
	log       zerolog.Logger
}

func NewScanner(sc *Scorer, sup market.Supplier, log zerolog.Logger) *Scanner {
	return &Scanner{
		Scorer:    sc,
		Supplier:  sup,
		Timeframe: "D",
		Limit:     120,
		log:       log,
	}
}

// Collect fetches candles for each symbol. A failing symbol gets an empty
// series so one bad fetch never aborts the scan.
func (s *Scanner) Collect(ctx context.Context, symbols []string) []market.Series {
	out := make([]market.Series, 0, len(symbols))
	for _, sym := range symbols {
		candles, err := s.Supplier.GetCandles(ctx, sym, s.Timeframe, s.Limit)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", sym).Msg("candle fetch failed")
			candles = nil
		}
		out = append(out, market.Series{Symbol: sym, Candles: candles})
	}
	return out
}

// Scan ranks symbols and returns the topN signals together with the
// candles that were scored.
func (s *Scanner) Scan(ctx context.Context, symbols []string, topN int) ([]Signal, []market.Series) {
	universe := s.Collect(ctx, symbols)
	signals := s.Scorer.ScreenCandidates(universe, topN)
	for i := range signals {
		signals[i].Name = s.name(signals[i].Symbol)
	}
	s.log.Debug().Int("universe", len(symbols)).Int("signals", len(signals)).Msg("scan complete")
	return signals, universe
}

func (s *Scanner) name(symbol string) string {
	return ResolveName(s.Names, s.Supplier, symbol)
}

// ResolveName tries names, then the supplier's Namer, then the built-in
// table. It returns "" when nobody knows the symbol.
func ResolveName(names NameResolver, sup market.Supplier, symbol string) string {
	if names != nil {
		if n := names(symbol); n != "" {
			return n
		}
	}
	if namer, ok := sup.(market.Namer); ok {
		if n := namer.GetName(symbol); n != "" {
			return n
		}
	}
	return market.Name(symbol)
}
