package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rustyeddy/equitrader/notify"
	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open positions with fresh prices and pending exit signals",
	Args:  cobra.NoArgs,
	RunE:  runPositions,
}

func init() {
	rootCmd.AddCommand(positionsCmd)
}

func runPositions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mon := a.monitor(notify.Null{})
	positions := mon.Enrich(context.Background())
	if len(positions) == 0 {
		fmt.Println("No open positions.")
		return nil
	}

	eval := mon.Evaluator()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tQTY\tAVG\tLAST\tPNL\tTRAIL\tEXIT")
	for _, p := range positions {
		exit := "-"
		if sig := eval.EvaluateExit(p); sig != nil {
			exit = string(sig.Type)
		}
		fmt.Fprintf(w, "%s\t%d\t%.0f\t%.0f\t%+.2f%%\t%.0f\t%s\n",
			p.Symbol, p.Qty, p.AvgPrice, p.LastPrice, p.PnL()*100, p.TrailStop, exit)
	}
	return w.Flush()
}
