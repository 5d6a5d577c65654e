// Package broker defines orders, their failure taxonomy and the Broker
// interface shared by the mock and KIS implementations.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/risk"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("%w: unsupported side %q", ErrValidation, s)
}

type PriceType string

const (
	Market PriceType = "market"
	Limit  PriceType = "limit"
)

// Failure kinds. Every failed OrderResult wraps exactly one of them.
var (
	ErrValidation = errors.New("validation")
	ErrSafetyGate = errors.New("safety gate")
	ErrTransport  = errors.New("transport")
	ErrAuth       = errors.New("auth")
	ErrRejected   = errors.New("rejected")
	ErrData       = errors.New("data")
)

type OrderRequest struct {
	Symbol     string
	Side       Side
	Qty        int
	PriceType  PriceType
	LimitPrice float64
}

func (r OrderRequest) String() string {
	if r.PriceType == Limit {
		return fmt.Sprintf("%s %s %d @ %.2f", r.Side, r.Symbol, r.Qty, r.LimitPrice)
	}
	return fmt.Sprintf("%s %s %d @ market", r.Side, r.Symbol, r.Qty)
}

// Validate checks the request shape. It never touches the network.
func (r OrderRequest) Validate() error {
	if r.Side != Buy && r.Side != Sell {
		return fmt.Errorf("%w: unsupported side %q", ErrValidation, r.Side)
	}
	if r.Qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrValidation, r.Qty)
	}
	switch r.PriceType {
	case Market:
	case Limit:
		if r.LimitPrice <= 0 {
			return fmt.Errorf("%w: limit order requires a positive limit price", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported price type %q", ErrValidation, r.PriceType)
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	return nil
}

// OrderResult is returned by every order attempt. OK=false means nothing
// reached the broker or the broker rejected it; Err names the kind.
type OrderResult struct {
	OK      bool
	OrderID string
	Message string
	Err     error
}

func Filled(orderID, msg string) OrderResult {
	return OrderResult{OK: true, OrderID: orderID, Message: msg}
}

func Failed(err error) OrderResult {
	return OrderResult{Message: err.Error(), Err: err}
}

// CheckInventory refuses a SELL for a symbol that is not held or for more
// than the held quantity.
func CheckInventory(positions []risk.Position, req OrderRequest) error {
	if req.Side != Sell {
		return nil
	}
	held := risk.Held(positions, req.Symbol)
	if held <= 0 {
		return fmt.Errorf("%w: insufficient holdings: %s is not held", ErrSafetyGate, req.Symbol)
	}
	if req.Qty > held {
		return fmt.Errorf("%w: insufficient holdings: sell %d %s but only %d held", ErrSafetyGate, req.Qty, req.Symbol, held)
	}
	return nil
}

type Broker interface {
	PlaceOrder(ctx context.Context, req OrderRequest) OrderResult
	// GetPositions never fails; it returns the best snapshot available.
	GetPositions(ctx context.Context) []risk.Position
}

// Store is the persistence a broker writes through.
type Store interface {
	RecordTrade(journal.TradeRecord) error
	UpsertPosition(p risk.Position, ts time.Time) error
	GetPositions() ([]risk.Position, error)
	LogEvent(level, msg string) error
	IsDailyLossLimitExceeded(limit float64) (bool, error)
}
