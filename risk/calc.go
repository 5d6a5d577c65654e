package risk

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// RealizedR expresses a closed trade in units of planned risk, where 1R is
// the stop-loss distance from entry. Returns 0 when entry or stopLossPct
// is 0.
func RealizedR(entry, exit, stopLossPct float64) float64 {
	risk := entry * abs(stopLossPct)
	if risk == 0 {
		return 0
	}
	return (exit - entry) / risk
}

// TargetPrice places a take-profit target pct above entry.
func TargetPrice(entry, pct float64) float64 {
	return entry * (1 + abs(pct))
}
