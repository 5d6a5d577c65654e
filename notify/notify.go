// Package notify delivers short operator messages. Delivery is best-effort:
// Send reports whether the message went out and never fails the caller.
package notify

import (
	"fmt"
	"net/http"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/config"
	"github.com/rustyeddy/equitrader/risk"
)

// MaxLen is the longest message, in runes, any notifier sends.
const MaxLen = risk.MaxMessageLen

type Notifier interface {
	Send(text string) bool
}

// Telegram posts messages to a single chat.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	log    zerolog.Logger
}

func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	return NewTelegramWithClient(token, tgbot.APIEndpoint, chatID, nil, log)
}

// NewTelegramWithClient talks to endpoint (a format string taking the
// token and method) through client. The bot identity is checked once here.
func NewTelegramWithClient(token, endpoint string, chatID int64, client tgbot.HTTPClient, log zerolog.Logger) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	bot, err := tgbot.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

func (t *Telegram) Send(text string) bool {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return false
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, risk.Truncate(text, MaxLen))); err != nil {
		t.log.Warn().Err(err).Int64("chat_id", t.chatID).Msg("telegram send failed")
		return false
	}
	return true
}

// Log writes messages to the operational log.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log { return &Log{log: log} }

func (l *Log) Send(text string) bool {
	l.log.Info().Str("notify", risk.Truncate(text, MaxLen)).Msg("notification")
	return true
}

// Null drops every message.
type Null struct{}

func (Null) Send(string) bool { return false }

// New builds the notifier named by cfg.Type. A telegram notifier that
// cannot start degrades to Log.
func New(cfg config.NotifierConfig, log zerolog.Logger) Notifier {
	switch cfg.Type {
	case "telegram":
		t, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifier unavailable, logging instead")
			return NewLog(log)
		}
		return t
	case "none":
		return Null{}
	default:
		return NewLog(log)
	}
}
