package handicap

import "math"

// roundHalfUp rounds halves toward +Inf, so -2.5 becomes -2 and 2.5 becomes 3.
// The published WHS worked examples are computed this way.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// RoundToTenth rounds to handicap precision (one decimal place).
func RoundToTenth(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// RoundDifferential rounds a score differential to one decimal. Negative
// differentials round toward zero.
func RoundDifferential(d float64) float64 {
	if d < 0 {
		return math.Ceil(d*10) / 10
	}
	return RoundToTenth(d)
}
