package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/equitrader/metrics"
	"github.com/rustyeddy/equitrader/monitor"
	"github.com/rustyeddy/equitrader/notify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate open positions on an interval and send exit alerts",
	Long: `Watch refreshes every open position from the latest candle, evaluates
stop loss, take profit, trailing and hard stops, and sends one alert per
symbol and signal type per trading day.

With watch.auto_exit enabled the position is also sold at market.

Example:
  trader watch -c trader.yaml --interval 30s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchInterval string
	watchAutoExit bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchInterval, "interval", "i", "", "poll interval (default watch.interval)")
	watchCmd.Flags().BoolVar(&watchAutoExit, "auto-exit", false, "sell positions at market when an exit signal fires")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchInterval != "" {
		cfg.Watch.Interval = watchInterval
	}
	if watchAutoExit {
		cfg.Watch.AutoExit = true
	}
	interval, err := cfg.Watch.IntervalDuration()
	if err != nil || interval <= 0 {
		return fmt.Errorf("invalid watch interval %q", cfg.Watch.Interval)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, log)
		defer srv.Close()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("mode", cfg.Mode).
		Str("broker", cfg.Broker.Provider).
		Dur("interval", interval).
		Bool("auto_exit", cfg.Watch.AutoExit).
		Msg("watching positions")

	mon := a.monitor(notify.New(cfg.Notifier, log))
	return mon.Run(ctx, interval, func(rep monitor.Report) {
		log.Info().
			Int("positions", len(rep.Positions)).
			Int("signals", len(rep.Signals)).
			Int("notified", rep.Notified).
			Int("exits", len(rep.Exits)).
			Msg("cycle")
	})
}
