package http

import (
	"errors"
	"fmt"
	"math"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/handicap"
)

const (
	minSlope = 55
	maxSlope = 155
	minPar   = 3
	maxPar   = 6
)

var errInvalid = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalid, fmt.Sprintf(format, args...))
}

func checkSlope(name string, slope int) error {
	if slope < minSlope || slope > maxSlope {
		return invalid("%s must be between %d and %d", name, minSlope, maxSlope)
	}
	return nil
}

func checkRating(name string, rating float64) error {
	if rating <= 0 || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return invalid("%s must be positive", name)
	}
	return nil
}

func checkIndex(index float64) error {
	if index < -10 || index > handicap.MaxHandicapIndex || math.IsNaN(index) {
		return invalid("handicap_index must be between -10 and %g", handicap.MaxHandicapIndex)
	}
	return nil
}

func checkHoleCount(n int) error {
	if n != 9 && n != 18 {
		return invalid("a round has 9 or 18 holes, got %d", n)
	}
	return nil
}

// validateTee checks the ratings that are set and every hole. The 18-hole
// rating is required; nine-hole ratings are optional.
func validateTee(t golf.Tee) error {
	if err := checkHoleCount(len(t.Holes)); err != nil {
		return err
	}
	if err := checkRating("course_rating_18", t.CourseRating18); err != nil {
		return err
	}
	if err := checkSlope("slope_rating_18", t.SlopeRating18); err != nil {
		return err
	}
	if t.SlopeRatingFront9 != 0 {
		if err := checkSlope("slope_rating_front9", t.SlopeRatingFront9); err != nil {
			return err
		}
	}
	if t.SlopeRatingBack9 != 0 {
		if err := checkSlope("slope_rating_back9", t.SlopeRatingBack9); err != nil {
			return err
		}
	}
	for _, h := range t.Holes {
		if h.Par < minPar || h.Par > maxPar {
			return invalid("hole %d: par must be between %d and %d", h.Number, minPar, maxPar)
		}
		if h.HCP < 1 || h.HCP > 18 {
			return invalid("hole %d: hcp must be between 1 and 18", h.Number)
		}
	}
	return nil
}

func validateScorecard(sc golf.Scorecard) error {
	if sc.CourseID <= 0 || sc.TeeID <= 0 {
		return invalid("course_id and tee_id are required")
	}
	if sc.TeeTime.IsZero() {
		return invalid("tee_time is required")
	}
	if err := checkHoleCount(len(sc.Scores)); err != nil {
		return err
	}
	for _, s := range sc.Scores {
		if s.Strokes < 1 {
			return invalid("hole %d: strokes must be at least 1", s.HoleNumber)
		}
	}
	return nil
}

// validateHoles checks calculator hole input.
func validateHoles(holes []handicap.Hole) error {
	if len(holes) == 0 {
		return invalid("holes are required")
	}
	if len(holes) > 18 {
		return invalid("at most 18 holes")
	}
	for _, h := range holes {
		if h.Par < minPar || h.Par > maxPar {
			return invalid("hole %d: par must be between %d and %d", h.Number, minPar, maxPar)
		}
		if h.Strokes < 1 {
			return invalid("hole %d: strokes must be at least 1", h.Number)
		}
	}
	return nil
}
