package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var tradeHeader = []string{"order_id", "symbol", "side", "qty", "price", "time"}

// WriteTradesCSV writes trades with a header row.
func WriteTradesCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			t.OrderID,
			t.Symbol,
			t.Side,
			strconv.Itoa(t.Qty),
			f(t.Price),
			t.Time.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
