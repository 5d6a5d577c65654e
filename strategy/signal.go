package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Signal is a scored trade candidate. It is created once per scoring pass
// and never mutated afterwards.
type Signal struct {
	Symbol  string
	Score   float64
	Reasons []string
	Name    string
}

func (s Signal) Summary() string {
	reasons := "N/A"
	if len(s.Reasons) > 0 {
		reasons = strings.Join(s.Reasons, ", ")
	}
	label := s.Symbol
	if s.Name != "" {
		label += " " + s.Name
	}
	return fmt.Sprintf("%s (score=%.2f) - %s", label, s.Score, reasons)
}

// TopN orders signals by score descending, keeping the input order for
// equal scores, and returns at most n of them.
func TopN(signals []Signal, n int) []Signal {
	if n <= 0 {
		return []Signal{}
	}
	ordered := append([]Signal(nil), signals...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	if n < len(ordered) {
		ordered = ordered[:n]
	}
	return ordered
}
