// Package recalc replays a player's approved rounds in tee-time order and
// derives the per-round differentials and the resulting handicap index.
package recalc

import (
	"errors"
	"fmt"
	"time"

	"github.com/handicappin/handicappin/internal/handicap"
)

var ErrMissingTee = errors.New("recalc: tee not found")

// Round is one approved round with the tee it was played from and the
// scored holes. Holes carry par, stroke index and strokes; HcpStrokes is
// assigned during the calculation.
type Round struct {
	ID             int64
	UserID         string
	TeeTime        time.Time
	ApprovalStatus string
	Tee            *handicap.Tee
	Holes          []handicap.Hole
}

// Result is the outcome of a full recalculation.
type Result struct {
	Rounds        []handicap.ProcessedRound
	HandicapIndex float64
}

// Calculate runs the two passes over rounds, which must be ordered by tee time.
// With no rounds the index falls back to MaxHandicapIndex.
func Calculate(initialIndex float64, rounds []Round) (Result, error) {
	if len(rounds) == 0 {
		return Result{HandicapIndex: handicap.MaxHandicapIndex}, nil
	}

	processed := make([]handicap.ProcessedRound, len(rounds))
	raw := make([]float64, len(rounds))

	// pass 1: scores and raw differentials against a rolling index. A player
	// starting from the maximum index has no established index until
	// MinRoundsForIndex rounds are on record, and no exceptional scores before that.
	rolling := initialIndex
	established := initialIndex < handicap.MaxHandicapIndex
	for i, r := range rounds {
		pr, err := scoreRound(r, rolling)
		if err != nil {
			return Result{}, err
		}
		processed[i] = pr
		raw[i] = pr.RawDifferential

		next := initialIndex
		if i+1 >= handicap.MinRoundsForIndex {
			next, err = handicap.HandicapIndex(raw[:i+1])
			if err != nil {
				return Result{}, fmt.Errorf("round %d: %w", r.ID, err)
			}
			next = min(next, handicap.MaxHandicapIndex)
		}

		if established || i >= handicap.MinRoundsForIndex {
			if offset := handicap.ExceptionalScoreOffset(rolling, pr.RawDifferential); offset > 0 {
				start := max(0, i-(handicap.DifferentialWindow-1))
				for j := start; j <= i; j++ {
					processed[j].ESROffset += offset
				}
			}
		}
		processed[i].UpdatedHandicapIndex = next
		rolling = next
	}

	// pass 2: final differentials, caps and the published index. The
	// initial index stands until MinRoundsForIndex rounds are on record.
	final := make([]float64, len(processed))
	capped := len(processed) >= handicap.DifferentialWindow
	for i := range processed {
		pr := &processed[i]
		if i == 0 {
			pr.ExistingHandicapIndex = initialIndex
		} else {
			pr.ExistingHandicapIndex = processed[i-1].UpdatedHandicapIndex
		}
		pr.FinalDifferential = handicap.RoundToTenth(pr.RawDifferential - pr.ESROffset)
		final[i] = pr.FinalDifferential

		if i+1 < handicap.MinRoundsForIndex {
			pr.UpdatedHandicapIndex = initialIndex
			continue
		}
		idx, err := handicap.HandicapIndex(final[:i+1])
		if err != nil {
			return Result{}, fmt.Errorf("round %d: %w", pr.ID, err)
		}
		if capped {
			idx = handicap.ApplyHandicapCaps(idx, handicap.LowHandicapIndex(processed, i))
		}
		pr.UpdatedHandicapIndex = min(idx, handicap.MaxHandicapIndex)
	}

	return Result{
		Rounds:        processed,
		HandicapIndex: processed[len(processed)-1].UpdatedHandicapIndex,
	}, nil
}

func scoreRound(r Round, index float64) (handicap.ProcessedRound, error) {
	pr := handicap.ProcessedRound{
		ID:                    r.ID,
		TeeTime:               r.TeeTime,
		ApprovalStatus:        r.ApprovalStatus,
		ExistingHandicapIndex: index,
	}
	if r.Tee == nil {
		return pr, fmt.Errorf("round %d: %w", r.ID, ErrMissingTee)
	}
	if len(r.Holes) == 0 {
		return pr, fmt.Errorf("round %d: %w", r.ID, handicap.ErrEmptyHoleSet)
	}
	tee := *r.Tee
	pr.TeeID = tee.ID

	if len(r.Holes) == 9 {
		nine := NineFor(tee, r.Holes)
		if !nine.Complete() {
			return pr, fmt.Errorf("round %d: nine-hole rating: %w", r.ID, handicap.ErrMissingRating)
		}
		ch := handicap.NineHoleCourseHandicap(index, nine.SlopeRating, nine.CourseRating, nine.Par)
		played, err := handicap.AdjustedPlayedScore(handicap.AllocateHandicapStrokes(r.Holes, ch))
		if err != nil {
			return pr, fmt.Errorf("round %d: %w", r.ID, err)
		}
		expected := handicap.Expected9HoleDifferential(index, nine.CourseRating, nine.SlopeRating, nine.Par)
		pr.CourseHandicap = ch
		pr.AdjustedPlayedScore = played
		pr.AdjustedGrossScore = float64(played + handicap.ExpectedNineHoleScore(index, nine.CourseRating, nine.SlopeRating, nine.Par))
		pr.RawDifferential = handicap.NineHoleScoreDifferential(played, nine.CourseRating, nine.SlopeRating, expected)
		return pr, nil
	}

	rating := tee.Rating18()
	ch := handicap.CourseHandicap(index, rating.SlopeRating, rating.CourseRating, rating.Par)
	holes := handicap.AllocateHandicapStrokes(r.Holes, ch)
	played, err := handicap.AdjustedPlayedScore(holes)
	if err != nil {
		return pr, fmt.Errorf("round %d: %w", r.ID, err)
	}
	ags, err := handicap.AdjustedGrossScore(holes, index, rating)
	if err != nil {
		return pr, fmt.Errorf("round %d: %w", r.ID, err)
	}
	pr.CourseHandicap = ch
	pr.AdjustedPlayedScore = played
	pr.AdjustedGrossScore = ags
	pr.RawDifferential = handicap.RoundDifferential(handicap.ScoreDifferential(ags, rating.CourseRating, rating.SlopeRating))
	return pr, nil
}

// NineFor picks the front or back nine rating for a 9-hole round. Rounds
// whose holes are all numbered 10 and above were played on the back nine.
func NineFor(tee handicap.Tee, holes []handicap.Hole) handicap.TeeRating {
	for _, h := range holes {
		if h.Number <= 9 {
			return tee.Front9()
		}
	}
	return tee.Back9()
}
