package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/spf13/cobra"
)

var orderCmd = &cobra.Command{
	Use:   "order <buy|sell> <symbol> <qty>",
	Short: "Place a single order through the configured broker",
	Long: `Order places one market or limit order. Buys are checked against the
position limit and the daily loss breaker first; sells are checked
against held quantity.

Examples:
  trader order buy 005930.KS 10
  trader order sell 005930.KS 5 --limit 72000`,
	Args: cobra.ExactArgs(3),
	RunE: runOrder,
}

var orderLimit float64

func init() {
	rootCmd.AddCommand(orderCmd)

	orderCmd.Flags().Float64VarP(&orderLimit, "limit", "l", 0, "limit price; market order when 0")
}

func runOrder(cmd *cobra.Command, args []string) error {
	side, err := broker.ParseSide(args[0])
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("qty %q: %w", args[2], err)
	}

	req := broker.OrderRequest{Symbol: args[1], Side: side, Qty: qty, PriceType: broker.Market}
	if orderLimit > 0 {
		req.PriceType = broker.Limit
		req.LimitPrice = orderLimit
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := checkEntry(ctx, a.journal, a.broker, cfg.Risk, req); err != nil {
		return err
	}

	res := a.broker.PlaceOrder(ctx, req)
	if !res.OK {
		return fmt.Errorf("order failed: %s", res.Message)
	}
	fmt.Printf("✓ %s\n", res.Message)
	return nil
}

type lossLedger interface {
	IsDailyLossLimitExceeded(limitR float64) (bool, error)
}

// checkEntry gates a BUY on the position limit and the daily loss breaker.
// Sells pass through; the broker checks held quantity.
func checkEntry(ctx context.Context, ledger lossLedger, b broker.Broker, rc risk.Config, req broker.OrderRequest) error {
	if req.Side != broker.Buy {
		return nil
	}
	breached, err := ledger.IsDailyLossLimitExceeded(rc.DailyLossLimitR)
	if err != nil {
		return fmt.Errorf("daily loss check: %w", err)
	}
	if err := risk.NewEvaluator(rc).CheckEntry(b.GetPositions(ctx), req.Symbol, breached).Error(); err != nil {
		return fmt.Errorf("order blocked: %w", err)
	}
	return nil
}
