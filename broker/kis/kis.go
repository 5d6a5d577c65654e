// Package kis places orders and reads balances through the Korea
// Investment & Securities OpenAPI.
package kis

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/config"
	"github.com/rustyeddy/equitrader/risk"
)

const (
	// PaperURL is the virtual trading environment.
	PaperURL = "https://openapivts.koreainvestment.com:29443"
	// LiveURL is the real-money environment.
	LiveURL = "https://openapi.koreainvestment.com:9443"

	TokenPath   = "/oauth2/tokenP"
	OrderPath   = "/uapi/domestic-stock/v1/trading/order-cash"
	BalancePath = "/uapi/domestic-stock/v1/trading/inquire-balance"

	DefaultTimeout       = 10 * time.Second
	DefaultSuffix        = ".KS"
	DefaultTakeProfitPct = 0.2 // target stamped on remote rows
)

// Transaction ids select the remote operation.
var (
	orderTrIDs = map[broker.Side]map[bool]string{
		broker.Buy:  {true: "VTTC0802U", false: "TTTC0802U"},
		broker.Sell: {true: "VTTC0801U", false: "TTTC0801U"},
	}
	balanceTrIDs = map[bool]string{true: "VTTC8434R", false: "TTTC8434R"}
)

// OrderTrID returns the tr_id for a (side, paper) pair.
func OrderTrID(side broker.Side, paper bool) (string, bool) {
	id, ok := orderTrIDs[side][paper]
	return id, ok
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Credentials is where app keys are read from and issued tokens are kept.
type Credentials interface {
	Load() (*config.Credentials, error)
	SaveToken(token string, expiresAt time.Time) error
}

type Options struct {
	Mode            string // config.ModeMock, ModePaper or ModeLive
	Paper           bool
	BaseURL         string // empty selects PaperURL or LiveURL
	Timeout         time.Duration
	PositionsTTL    time.Duration
	DailyLossLimitR float64
	TakeProfitPct   float64
	SymbolSuffix    string
	Now             func() time.Time
}

// Gateway mediates every order and balance request to KIS. It is safe for
// concurrent use.
type Gateway struct {
	opts    Options
	http    Doer
	store   broker.Store
	creds   *config.Credentials
	cano    string
	product string
	tokens  *tokenCache
	log     zerolog.Logger

	posMu sync.Mutex
	pos   []risk.Position
	posAt time.Time
}

var _ broker.Broker = (*Gateway)(nil)

// New builds a Gateway. Missing or unreadable credentials leave it
// disabled: every order is refused and positions come from the store.
func New(doer Doer, store broker.Store, creds Credentials, opts Options, log zerolog.Logger) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TakeProfitPct <= 0 {
		opts.TakeProfitPct = DefaultTakeProfitPct
	}
	if opts.SymbolSuffix == "" {
		opts.SymbolSuffix = DefaultSuffix
	}
	if opts.BaseURL == "" {
		opts.BaseURL = LiveURL
		if opts.Paper {
			opts.BaseURL = PaperURL
		}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if doer == nil {
		doer = &http.Client{Timeout: opts.Timeout}
	}

	g := &Gateway{opts: opts, http: doer, store: store, log: log}

	keys, err := creds.Load()
	if err != nil {
		log.Warn().Err(err).Msg("kis credentials unreadable, orders disabled")
	}
	if keys.Enabled() {
		g.creds = keys
		g.cano, g.product = config.SplitAccount(keys.Account.AccNo)
	} else {
		log.Warn().Msg("kis credentials missing, orders disabled")
	}

	g.tokens = newTokenCache(g.issueToken, creds.SaveToken, opts.Now, log)
	if keys.Enabled() {
		g.tokens.seed(keys.Token())
	}
	return g
}

// Enabled reports whether app keys were loaded.
func (g *Gateway) Enabled() bool {
	return g.creds != nil
}

// Code strips the exchange suffix from a symbol.
func Code(symbol string) string {
	code, _, _ := strings.Cut(symbol, ".")
	return code
}
