package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/config"
	"github.com/rustyeddy/equitrader/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Signal scoring, exit monitoring and guarded order execution for KRX equities",
	Long: `Trader ranks a stock universe by momentum, watches open positions for
exit conditions and places orders through a mock broker or the KIS OpenAPI.

Live orders are sent only when mode is live, the broker account is not a
paper account, and the daily loss limit has not been reached.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

var (
	cfgFile  string
	envFiles []string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", []string{".env"}, "dotenv files to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
}

func loadConfig() error {
	config.LoadDotEnv(envFiles...)

	cfg = config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = logging.Console(cfg.Log.Level)
	return nil
}
