package handicap

import "fmt"

const holesPerRound = 18

// MaxHoleScore is the net double bogey ceiling: par + 2 + strokes received,
// never more than par + 5.
func MaxHoleScore(h Hole) int {
	return min(h.Par+5, h.Par+2+h.HcpStrokes)
}

// HoleAdjustedScore caps the strokes on a hole at net double bogey.
func HoleAdjustedScore(h Hole) int {
	return min(h.Strokes, MaxHoleScore(h))
}

// AdjustedPlayedScore sums the hole-adjusted scores of the holes played.
func AdjustedPlayedScore(holes []Hole) (int, error) {
	if len(holes) == 0 {
		return 0, ErrEmptyHoleSet
	}
	total := 0
	for _, h := range holes {
		total += HoleAdjustedScore(h)
	}
	return total, nil
}

// AdjustedGrossScore returns the 18-hole adjusted gross score. A full round
// returns the adjusted played score. A partial round needs the 18-hole
// rating: the unplayed holes are filled with par plus the prorated share of the
// course handicap.
func AdjustedGrossScore(holes []Hole, handicapIndex float64, rating TeeRating) (float64, error) {
	played, err := AdjustedPlayedScore(holes)
	if err != nil {
		return 0, err
	}
	switch {
	case len(holes) == holesPerRound:
		return float64(played), nil
	case len(holes) > holesPerRound:
		return 0, &CalculationError{Kind: KindTooManyHoles, Msg: fmt.Sprintf("%d holes in one round", len(holes))}
	}
	if !rating.Complete() {
		return 0, &CalculationError{
			Kind: KindMissingRating,
			Msg:  "slope rating, course rating and par are required for rounds shorter than 18 holes",
		}
	}

	courseHandicap := CourseHandicap(handicapIndex, rating.SlopeRating, rating.CourseRating, rating.Par)
	holesLeft := float64(holesPerRound - len(holes))
	predictedStrokes := roundHalfUp(float64(courseHandicap) / holesPerRound * holesLeft)
	parForRemaining := holesLeft * (float64(rating.Par) / holesPerRound)
	return float64(played) + predictedStrokes + parForRemaining, nil
}
