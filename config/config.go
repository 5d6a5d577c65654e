package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rustyeddy/equitrader/market"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/rustyeddy/equitrader/strategy"
	"gopkg.in/yaml.v3"
)

// Trading modes.
const (
	ModeMock  = "mock"
	ModePaper = "paper"
	ModeLive  = "live"
)

// Config is the application configuration.
type Config struct {
	Mode     string           `json:"mode" yaml:"mode"`
	Broker   BrokerConfig     `json:"broker" yaml:"broker"`
	DB       DBConfig         `json:"db" yaml:"db"`
	Strategy strategy.Weights `json:"strategy" yaml:"strategy"`
	Risk     risk.Config      `json:"risk" yaml:"risk"`
	Watch    WatchConfig      `json:"watch" yaml:"watch"`
	Notifier NotifierConfig   `json:"notifier" yaml:"notifier"`
	Log      LogConfig        `json:"log" yaml:"log"`
	Metrics  MetricsConfig    `json:"metrics" yaml:"metrics"`
}

type BrokerConfig struct {
	Provider     string `json:"provider" yaml:"provider"` // "mock" or "kis"
	KeysPath     string `json:"keys_path,omitempty" yaml:"keys_path,omitempty"`
	Paper        bool   `json:"paper" yaml:"paper"`
	Timeout      string `json:"timeout" yaml:"timeout"`             // e.g. "10s"
	PositionsTTL string `json:"positions_ttl" yaml:"positions_ttl"` // e.g. "30s"
	Seed         int64  `json:"seed" yaml:"seed"`                   // mock market data
	SymbolSuffix string `json:"symbol_suffix" yaml:"symbol_suffix"` // appended to KIS codes
}

func (b BrokerConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(b.Timeout)
}

func (b BrokerConfig) PositionsTTLDuration() (time.Duration, error) {
	return parseDuration(b.PositionsTTL)
}

type DBConfig struct {
	Path string `json:"path" yaml:"path"`
}

type WatchConfig struct {
	Universe  string   `json:"universe" yaml:"universe"`
	Symbols   []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	TopN      int      `json:"top_n" yaml:"top_n"`
	Timeframe string   `json:"timeframe" yaml:"timeframe"`
	Limit     int      `json:"limit" yaml:"limit"`
	Timezone  string   `json:"timezone" yaml:"timezone"`
	Interval  string   `json:"interval" yaml:"interval"`
	AutoExit  bool     `json:"auto_exit" yaml:"auto_exit"`
	ShowNames bool     `json:"show_names" yaml:"show_names"`
}

func (w WatchConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration(w.Interval)
}

// Location loads the timezone that defines a trading day.
func (w WatchConfig) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(w.Timezone)
}

type NotifierConfig struct {
	Type     string         `json:"type" yaml:"type"` // "telegram", "log" or "none"
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty" yaml:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration as YAML or JSON based on extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeMock, ModePaper, ModeLive:
	default:
		return fmt.Errorf("mode must be 'mock', 'paper' or 'live'")
	}
	switch c.Broker.Provider {
	case "mock":
	case "kis":
		if c.Broker.KeysPath == "" {
			return fmt.Errorf("broker.keys_path is required for kis")
		}
	default:
		return fmt.Errorf("broker.provider must be 'mock' or 'kis'")
	}
	if c.Mode == ModeLive && c.Broker.Provider != "kis" {
		return fmt.Errorf("live mode requires broker.provider 'kis'")
	}
	if _, err := c.Broker.TimeoutDuration(); err != nil {
		return fmt.Errorf("broker.timeout: %w", err)
	}
	if _, err := c.Broker.PositionsTTLDuration(); err != nil {
		return fmt.Errorf("broker.positions_ttl: %w", err)
	}
	if c.Broker.SymbolSuffix != "" && !strings.HasPrefix(c.Broker.SymbolSuffix, ".") {
		return fmt.Errorf("broker.symbol_suffix must start with '.'")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if c.Watch.TopN <= 0 {
		return fmt.Errorf("watch.top_n must be positive")
	}
	if c.Watch.Limit < strategy.MinCandles {
		return fmt.Errorf("watch.limit must be at least %d", strategy.MinCandles)
	}
	if _, err := market.TimeframeDuration(c.Watch.Timeframe); err != nil {
		return fmt.Errorf("watch.timeframe: %w", err)
	}
	if _, err := c.Watch.Location(); err != nil {
		return fmt.Errorf("watch.timezone: %w", err)
	}
	if _, err := c.Watch.IntervalDuration(); err != nil {
		return fmt.Errorf("watch.interval: %w", err)
	}
	if c.Watch.Universe == market.UniverseCustom && len(c.Watch.Symbols) == 0 {
		return fmt.Errorf("watch.symbols required for CUSTOM universe")
	}
	switch c.Notifier.Type {
	case "log", "none":
	case "telegram":
		if c.Notifier.Telegram.Token == "" || c.Notifier.Telegram.ChatID == 0 {
			return fmt.Errorf("notifier.telegram token and chat_id required for telegram type")
		}
	default:
		return fmt.Errorf("notifier.type must be 'telegram', 'log' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Mode: ModeMock,
		Broker: BrokerConfig{
			Provider:     "mock",
			KeysPath:     "config/kis.keys.yaml",
			Paper:        true,
			Timeout:      "10s",
			PositionsTTL: "30s",
			Seed:         42,
			SymbolSuffix: ".KS",
		},
		DB:       DBConfig{Path: "./trader.db"},
		Strategy: strategy.DefaultWeights(),
		Risk:     risk.DefaultConfig(),
		Watch: WatchConfig{
			Universe:  market.UniverseKOSPI,
			TopN:      5,
			Timeframe: "D",
			Limit:     120,
			Timezone:  "Asia/Seoul",
			Interval:  "1m",
			ShowNames: true,
		},
		Notifier: NotifierConfig{Type: "log"},
		Log:      LogConfig{Level: "info"},
	}
}
