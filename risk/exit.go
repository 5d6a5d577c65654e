package risk

import (
	"fmt"
	"time"
)

type SignalType string

const (
	StopLoss   SignalType = "stop_loss"
	TakeProfit SignalType = "take_profit"
	Trailing   SignalType = "trailing"
	HardStop   SignalType = "hard_stop"
)

// ExitSignal is recomputed on every evaluation and never stored.
type ExitSignal struct {
	Symbol      string
	Type        SignalType
	Message     string
	TriggeredAt time.Time
}

// MaxMessageLen is the notifier's character budget.
const MaxMessageLen = 200

// EvaluateExit returns the first matching rule in the order stop_loss,
// take_profit, trailing, hard_stop, or nil when nothing fires.
func EvaluateExit(p Position, cfg Config, now time.Time) *ExitSignal {
	pnl := p.PnL()
	sig := func(t SignalType, msg string) *ExitSignal {
		return &ExitSignal{Symbol: p.Symbol, Type: t, Message: msg, TriggeredAt: now}
	}

	if pnl <= -abs(cfg.StopLossPct) {
		return sig(StopLoss, fmt.Sprintf("stop loss hit: %.2f%%", pnl*100))
	}
	if pnl >= abs(cfg.TakeProfitPct) {
		return sig(TakeProfit, fmt.Sprintf("take profit hit: %.2f%%", pnl*100))
	}
	if p.TrailStop > 0 && cfg.TrailingPct > 0 {
		threshold := p.TrailStop * (1 - cfg.TrailingPct)
		if p.LastPrice <= threshold {
			return sig(Trailing, fmt.Sprintf("trailing stop: last %.2f <= threshold %.2f", p.LastPrice, threshold))
		}
	}
	if p.HardStop > 0 && p.LastPrice <= p.HardStop {
		return sig(HardStop, fmt.Sprintf("hard stop: last %.2f <= %.2f", p.LastPrice, p.HardStop))
	}
	return nil
}

// Evaluator binds a Config and a clock.
type Evaluator struct {
	Config Config
	Now    func() time.Time
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{Config: cfg, Now: time.Now}
}

func (e *Evaluator) EvaluateExit(p Position) *ExitSignal {
	return EvaluateExit(p, e.Config, e.Now())
}

func (e *Evaluator) CanOpenPosition(current int) bool {
	return current < e.Config.MaxPositions
}

// FormatExitMessage renders a notification line of at most MaxMessageLen
// runes.
func FormatExitMessage(s ExitSignal, name string) string {
	label := s.Symbol
	if name != "" {
		label += " " + name
	}
	return Truncate(fmt.Sprintf("[v5] sell signal(%s): %s - %s", s.Type, label, s.Message), MaxMessageLen)
}

// Truncate cuts text to n runes.
func Truncate(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
