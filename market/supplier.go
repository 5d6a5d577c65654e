package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Supplier returns candle history for symbols. Implementations include the
// deterministic Mock and any live market data adapter.
type Supplier interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	GetUniverse(name string, custom []string) []string
}

// Namer is the optional display-name capability of a Supplier.
type Namer interface {
	GetName(symbol string) string
}

// TimeframeDuration maps "D", "W", "60m" or "1h" style timeframes to a bar
// duration.
func TimeframeDuration(tf string) (time.Duration, error) {
	tf = strings.TrimSpace(tf)
	switch strings.ToUpper(tf) {
	case "", "D", "1D":
		return 24 * time.Hour, nil
	case "W", "1W":
		return 7 * 24 * time.Hour, nil
	}

	unit := tf[len(tf)-1]
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h', 'H':
		return time.Duration(n) * time.Hour, nil
	case 'd', 'D':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid timeframe %q", tf)
}
