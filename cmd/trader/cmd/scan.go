package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/equitrader/market"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rank the configured universe and print the top candidates",
	Long: `Scan scores every symbol in the watch universe on recent return,
candle intensity and volume, then prints the best candidates.

Examples:
  trader scan
  trader scan --top 10 --universe KOSDAQ_TOP150
  trader scan --universe CUSTOM --symbols 005930.KS,000660.KS`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanTop      int
	scanUniverse string
	scanSymbols  []string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVarP(&scanTop, "top", "n", 0, "number of candidates (default watch.top_n)")
	scanCmd.Flags().StringVarP(&scanUniverse, "universe", "u", "", "universe name (default watch.universe)")
	scanCmd.Flags().StringSliceVarP(&scanSymbols, "symbols", "s", nil, "symbols for the CUSTOM universe")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanUniverse != "" {
		cfg.Watch.Universe = scanUniverse
	}
	if len(scanSymbols) > 0 {
		cfg.Watch.Symbols = scanSymbols
	}
	top := cfg.Watch.TopN
	if scanTop > 0 {
		top = scanTop
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := a.universe()
	signals, _ := a.scanner().Scan(context.Background(), symbols, top)

	for _, s := range signals {
		if s.Name != "" {
			if err := a.journal.UpsertSymbol(market.Code(s.Symbol), s.Name); err != nil {
				log.Warn().Err(err).Str("symbol", s.Symbol).Msg("cache symbol name failed")
			}
		}
	}

	fmt.Printf("Top %d of %d (%s, %s)\n", len(signals), len(symbols), cfg.Watch.Universe, cfg.Watch.Timeframe)
	for i, s := range signals {
		fmt.Printf("%2d. %s\n", i+1, s.Summary())
	}
	if len(signals) == 0 {
		fmt.Println("No candidates (not enough candle history).")
	}
	return nil
}
