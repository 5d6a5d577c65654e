// Package metrics exposes Prometheus counters for orders, broker sessions
// and exit alerts.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Order attempts by side and outcome"},
		[]string{"side", "outcome"},
	)
	TokenIssuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "token_issues_total", Help: "Broker access token issuance attempts"},
		[]string{"result"},
	)
	ExitSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "exit_signals_total", Help: "Exit signals raised by type"},
		[]string{"type"},
	)
	AlertsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "alerts_suppressed_total", Help: "Exit alerts suppressed as same-day repeats"},
	)
)

// Order outcomes.
const (
	OutcomeFilled    = "filled"
	OutcomeRejected  = "rejected"
	OutcomeBlocked   = "blocked"
	OutcomeTransport = "transport"
)

func init() {
	prometheus.MustRegister(OrdersTotal, TokenIssuesTotal, ExitSignalsTotal, AlertsSuppressedTotal)
}

func Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return srv
}
