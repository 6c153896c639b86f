package handicap

import "time"

// LowHandicapIndex returns the lowest updated index among approved rounds
// played before rounds[current] in the 365 days up to its tee time, inclusive.
// rounds must be in tee-time order. It returns nil when no round qualifies.
func LowHandicapIndex(rounds []ProcessedRound, current int) *float64 {
	if current < 0 || current >= len(rounds) {
		return nil
	}
	ref := rounds[current].TeeTime
	windowStart := ref.AddDate(0, 0, -LowIndexWindowDays)

	var low *float64
	for _, r := range rounds[:current] {
		if r.ApprovalStatus != ApprovalApproved || !inWindow(r.TeeTime, windowStart, ref) {
			continue
		}
		if low == nil || r.UpdatedHandicapIndex < *low {
			v := r.UpdatedHandicapIndex
			low = &v
		}
	}
	return low
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// ApplyHandicapCaps limits how far newIndex may rise above the low index
// (Rule 5.7). The part of an increase above 3.0 is halved (soft cap), and the
// total increase never exceeds 5.0 (hard cap). Indexes that need no cap are
// returned unchanged.
func ApplyHandicapCaps(newIndex float64, lowHandicapIndex *float64) float64 {
	if lowHandicapIndex == nil || newIndex <= *lowHandicapIndex {
		return newIndex
	}
	low := *lowHandicapIndex
	increase := newIndex - low
	if increase <= SoftCapThreshold {
		return newIndex
	}

	softened := SoftCapThreshold + (increase-SoftCapThreshold)*SoftCapFactor
	return RoundToTenth(low + min(softened, HardCapThreshold))
}
