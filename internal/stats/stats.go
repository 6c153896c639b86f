// Package stats summarises a player's rounds for the dashboard.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/handicappin/handicappin/internal/golf"
)

// Range names accepted by SinceFor.
const (
	RangeSixMonths = "6months"
	RangeYear      = "1year"
	RangeAll       = "all"
)

// SinceFor maps a range name to its cutoff. RangeAll gives the zero time.
func SinceFor(rng string, now time.Time) (time.Time, error) {
	switch rng {
	case "", RangeAll:
		return time.Time{}, nil
	case RangeSixMonths:
		return now.AddDate(0, -6, 0), nil
	case RangeYear:
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("stats: unknown range %q", rng)
	}
}

// FilterByTimeRange keeps rounds teed off at or after since.
func FilterByTimeRange(rounds []golf.Round, since time.Time) []golf.Round {
	if since.IsZero() {
		return rounds
	}
	out := make([]golf.Round, 0, len(rounds))
	for _, r := range rounds {
		if !r.TeeTime.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// Overview headlines a set of rounds. Consistency is the population standard
// deviation of differentials; ConsistencyRating maps it onto 0..100.
type Overview struct {
	TotalRounds       int     `json:"total_rounds"`
	AvgScore          float64 `json:"avg_score"`
	BestScore         int     `json:"best_score"`
	AvgDifferential   float64 `json:"avg_differential"`
	BestDifferential  float64 `json:"best_differential"`
	WorstDifferential float64 `json:"worst_differential"`
	Consistency       float64 `json:"consistency"`
	ConsistencyRating int     `json:"consistency_rating"`
	CurrentHandicap   float64 `json:"current_handicap"`
	HandicapChange    float64 `json:"handicap_change"`
	ImprovementRate   float64 `json:"improvement_rate"`
}

// OverviewOf aggregates rounds in tee-time order.
func OverviewOf(rounds []golf.Round, currentIndex float64) Overview {
	o := Overview{TotalRounds: len(rounds), CurrentHandicap: currentIndex}
	if len(rounds) == 0 {
		return o
	}
	sorted := byTeeTime(rounds)
	scores := make([]float64, len(sorted))
	diffs := make([]float64, len(sorted))
	o.BestScore = sorted[0].TotalStrokes
	for i, r := range sorted {
		scores[i] = r.AdjustedGrossScore
		diffs[i] = r.ScoreDifferential
		o.BestScore = min(o.BestScore, r.TotalStrokes)
	}
	o.AvgScore = stat.Mean(scores, nil)
	o.AvgDifferential, o.Consistency = stat.PopMeanStdDev(diffs, nil)
	if len(diffs) < 2 {
		o.Consistency = 0
	}
	o.BestDifferential = floats.Min(diffs)
	o.WorstDifferential = floats.Max(diffs)
	if len(diffs) >= 3 {
		o.ConsistencyRating = int(math.Round(math.Max(0, math.Min(100, 100-o.Consistency*10))))
	}

	first := sorted[0].ExistingHandicapIndex
	last := sorted[len(sorted)-1].UpdatedHandicapIndex
	o.HandicapChange = last - first
	if first != 0 {
		o.ImprovementRate = (first - last) / first * 100
	}
	return o
}

func byTeeTime(rounds []golf.Round) []golf.Round {
	out := append([]golf.Round(nil), rounds...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TeeTime.Before(out[j].TeeTime) })
	return out
}

type CourseStats struct {
	CourseID         int64   `json:"course_id"`
	CourseName       string  `json:"course_name"`
	Rounds           int     `json:"rounds"`
	AvgDifferential  float64 `json:"avg_differential"`
	BestDifferential float64 `json:"best_differential"`
	AvgScore         float64 `json:"avg_score"`
}

// CoursePerformance groups rounds by course, most played first.
func CoursePerformance(rounds []golf.Round) []CourseStats {
	type acc struct {
		name          string
		diffs, scores []float64
	}
	by := map[int64]*acc{}
	for _, r := range rounds {
		a, ok := by[r.CourseID]
		if !ok {
			a = &acc{name: r.CourseName}
			by[r.CourseID] = a
		}
		a.diffs = append(a.diffs, r.ScoreDifferential)
		a.scores = append(a.scores, r.AdjustedGrossScore)
	}
	out := make([]CourseStats, 0, len(by))
	for id, a := range by {
		out = append(out, CourseStats{
			CourseID:         id,
			CourseName:       a.name,
			Rounds:           len(a.diffs),
			AvgDifferential:  stat.Mean(a.diffs, nil),
			BestDifferential: floats.Min(a.diffs),
			AvgScore:         stat.Mean(a.scores, nil),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rounds != out[j].Rounds {
			return out[i].Rounds > out[j].Rounds
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out
}

// ExceptionalRounds lists rounds that carried an exceptional score reduction.
func ExceptionalRounds(rounds []golf.Round) []golf.Round {
	var out []golf.Round
	for _, r := range rounds {
		if r.ExceptionalScoreAdjustment > 0 {
			r.Scores = nil
			out = append(out, r)
		}
	}
	return out
}

// Report is everything the stats endpoint returns.
type Report struct {
	Overview          Overview       `json:"overview"`
	StrokesByParType  []ParTypeStats `json:"strokes_by_par_type"`
	ScoreDistribution Distribution   `json:"score_distribution"`
	Courses           []CourseStats  `json:"courses"`
	FrontBack         FrontBack      `json:"front_back"`
	BogeyFreeRounds   int            `json:"bogey_free_rounds"`
	Exceptional       []golf.Round   `json:"exceptional_rounds"`
}

func Compute(rounds []golf.Round, currentIndex float64) Report {
	return Report{
		Overview:          OverviewOf(rounds, currentIndex),
		StrokesByParType:  StrokesByParType(rounds),
		ScoreDistribution: ScoreDistribution(rounds),
		Courses:           CoursePerformance(rounds),
		FrontBack:         FrontBackComparison(rounds),
		BogeyFreeRounds:   BogeyFreeRounds(rounds),
		Exceptional:       ExceptionalRounds(rounds),
	}
}
