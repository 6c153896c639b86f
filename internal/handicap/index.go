package handicap

import "sort"

// countRange maps a range of score counts to a value from a WHS table.
type countRange struct {
	low, high int
	value     int
}

// differentialsUsed is the Rule 5.2a table: how many of the lowest
// differentials count toward the index for a given record size.
var differentialsUsed = []countRange{
	{1, 5, 1},
	{6, 8, 2},
	{9, 11, 3},
	{12, 14, 4},
	{15, 16, 5},
	{17, 18, 6},
	{19, 19, 7},
	{20, DifferentialWindow, 8},
}

// lowCountAdjustment is the Rule 5.2a adjustment, in strokes, subtracted
// from the average for small records.
var lowCountAdjustment = []countRange{
	{1, 3, 2},
	{4, 4, 1},
	{6, 6, 1},
}

func lookup(table []countRange, n int) (int, bool) {
	for _, r := range table {
		if n >= r.low && n <= r.high {
			return r.value, true
		}
	}
	return 0, false
}

// RelevantDifferentialCount is the number of lowest differentials used for a
// record of n scores.
func RelevantDifferentialCount(n int) int {
	if n > DifferentialWindow {
		n = DifferentialWindow
	}
	v, _ := lookup(differentialsUsed, n)
	return v
}

// LowCountAdjustment is the strokes subtracted for a record of n scores.
func LowCountAdjustment(n int) float64 {
	v, _ := lookup(lowCountAdjustment, n)
	return float64(v)
}

// HandicapIndex derives an index from differentials listed oldest first.
// Only the trailing DifferentialWindow entries are considered. The caller's
// slice is not reordered.
func HandicapIndex(differentials []float64) (float64, error) {
	if len(differentials) == 0 {
		return 0, ErrNoDifferentials
	}
	best := RelevantDifferentials(differentials)

	sum := 0.0
	for _, d := range best {
		sum += d
	}
	avg := RoundToTenth(sum / float64(len(best)))

	adj := LowCountAdjustment(min(len(differentials), DifferentialWindow))
	if adj == 0 {
		return avg, nil
	}
	return RoundToTenth(avg - adj), nil
}

// RelevantDifferentials returns the differentials that count toward the
// index, lowest first.
func RelevantDifferentials(differentials []float64) []float64 {
	recent := differentials
	if len(recent) > DifferentialWindow {
		recent = recent[len(recent)-DifferentialWindow:]
	}
	sorted := append([]float64(nil), recent...)
	sort.Float64s(sorted)
	return sorted[:RelevantDifferentialCount(len(sorted))]
}
