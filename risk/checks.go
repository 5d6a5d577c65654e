package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of the pre-trade entry checks.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

func (d Decision) Error() error {
	if d.Allowed || len(d.Violations) == 0 {
		return nil
	}
	v := d.Violations[0]
	return fmt.Errorf("%s: %s", v.Code, v.Msg)
}

// CheckEntry gates a new BUY against the position limit and the daily loss
// breaker. Adding to an already-held symbol does not take a new slot.
func (e *Evaluator) CheckEntry(open []Position, symbol string, dailyLossBreached bool) Decision {
	d := Decision{Allowed: true}

	held := 0
	for _, p := range open {
		if p.Qty > 0 {
			held++
		}
	}
	if Held(open, symbol) <= 0 && !e.CanOpenPosition(held) {
		d.add("TOO_MANY_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", held, e.Config.MaxPositions))
	}
	if dailyLossBreached {
		d.add("DAILY_LOSS_LIMIT",
			fmt.Sprintf("daily loss limit %.2fR reached", e.Config.DailyLossLimitR))
	}
	return d
}
