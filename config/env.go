package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvMode           = "TRADER_MODE"
	EnvKeysPath       = "KIS_KEYS_PATH"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
	EnvDB             = "TRADER_DB"
)

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvKeysPath); v != "" {
		c.Broker.KeysPath = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		c.Notifier.Telegram.Token = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notifier.Telegram.ChatID = id
		}
	}
}
