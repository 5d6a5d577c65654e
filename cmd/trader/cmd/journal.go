package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/equitrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query trades and events recorded in the SQLite journal.

Subcommands:
  trade   - Show a trade by broker order id
  events  - List logged events for a day
  export  - Write trades in a date range as CSV

Examples:
  trader journal trade 0000123
  trader journal events --level risk
  trader journal export --from 2026-01-01 --to 2026-01-31 -o jan.csv`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <order-id>",
	Short: "Show a trade by broker order id",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List logged events for a day",
	Args:  cobra.NoArgs,
	RunE:  runJournalEvents,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write trades in a date range as CSV",
	Args:  cobra.NoArgs,
	RunE:  runJournalExport,
}

var (
	eventsLevel string
	eventsDay   string

	exportFrom string
	exportTo   string
	exportOut  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalEventsCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalEventsCmd.Flags().StringVar(&eventsLevel, "level", "", "event level (INFO, WARNING, risk, order_fail, alert); all when empty")
	journalEventsCmd.Flags().StringVar(&eventsDay, "day", "", "YYYY-MM-DD (default today)")

	journalExportCmd.Flags().StringVar(&exportFrom, "from", "", "first day, YYYY-MM-DD (default today)")
	journalExportCmd.Flags().StringVar(&exportTo, "to", "", "last day inclusive, YYYY-MM-DD (default --from)")
	journalExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "CSV output path (default stdout)")
}

func openJournal() (*journal.SQLite, *time.Location, error) {
	loc, err := cfg.Watch.Location()
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.NewSQLite(cfg.DB.Path, journal.WithLocation(loc))
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return j, loc, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, _, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	fmt.Printf("%s  %s %s %d @ %.2f  (%s)\n",
		t.OrderID, t.Side, t.Symbol, t.Qty, t.Price, t.Time.Format(time.RFC3339))
	return nil
}

func runJournalEvents(cmd *cobra.Command, args []string) error {
	j, loc, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	day := eventsDay
	if day == "" {
		day = j.Day(time.Now())
	}
	events, err := j.Events(eventsLevel, day)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	for _, e := range events {
		fmt.Printf("%s  %-10s %s\n", e.Time.In(loc).Format("15:04:05"), e.Level, e.Message)
	}
	if len(events) == 0 {
		fmt.Printf("No events on %s.\n", day)
	}
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	j, loc, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	from := exportFrom
	if from == "" {
		from = j.Day(time.Now())
	}
	to := exportTo
	if to == "" {
		to = from
	}
	start, _, err := dayBounds(loc, from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	_, end, err := dayBounds(loc, to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	trades, err := j.ListTradesBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := journal.WriteTradesCSV(w, trades); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if exportOut != "" {
		fmt.Printf("✓ Exported %d trades to %s\n", len(trades), exportOut)
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
