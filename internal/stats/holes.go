package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/handicappin/handicappin/internal/golf"
)

type ParTypeStats struct {
	Par          int     `json:"par"`
	Holes        int     `json:"holes"`
	TotalStrokes int     `json:"total_strokes"`
	AvgStrokes   float64 `json:"avg_strokes"`
}

// StrokesByParType averages strokes on par 3, 4 and 5 holes.
func StrokesByParType(rounds []golf.Round) []ParTypeStats {
	out := []ParTypeStats{{Par: 3}, {Par: 4}, {Par: 5}}
	for _, r := range rounds {
		for _, s := range r.Scores {
			if s.Par < 3 || s.Par > 5 {
				continue
			}
			p := &out[s.Par-3]
			p.Holes++
			p.TotalStrokes += s.Strokes
		}
	}
	for i := range out {
		if out[i].Holes > 0 {
			out[i].AvgStrokes = float64(out[i].TotalStrokes) / float64(out[i].Holes)
		}
	}
	return out
}

type Bucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Distribution struct {
	EagleOrBetter Bucket `json:"eagle_or_better"`
	Birdie        Bucket `json:"birdie"`
	Par           Bucket `json:"par"`
	Bogey         Bucket `json:"bogey"`
	DoubleBogey   Bucket `json:"double_bogey"`
	TriplePlus    Bucket `json:"triple_plus"`
	Holes         int    `json:"holes"`
}

// ScoreDistribution counts holes by score relative to par.
func ScoreDistribution(rounds []golf.Round) Distribution {
	var d Distribution
	for _, r := range rounds {
		for _, s := range r.Scores {
			d.Holes++
			switch diff := s.Strokes - s.Par; {
			case diff <= -2:
				d.EagleOrBetter.Count++
			case diff == -1:
				d.Birdie.Count++
			case diff == 0:
				d.Par.Count++
			case diff == 1:
				d.Bogey.Count++
			case diff == 2:
				d.DoubleBogey.Count++
			default:
				d.TriplePlus.Count++
			}
		}
	}
	if d.Holes == 0 {
		return d
	}
	for _, b := range []*Bucket{&d.EagleOrBetter, &d.Birdie, &d.Par, &d.Bogey, &d.DoubleBogey, &d.TriplePlus} {
		b.Percentage = float64(b.Count) / float64(d.Holes) * 100
	}
	return d
}

type Half struct {
	Rounds     int     `json:"rounds"`
	AvgStrokes float64 `json:"avg_strokes"`
	AvgOverPar float64 `json:"avg_over_par"`
}

type FrontBack struct {
	Front      Half    `json:"front9"`
	Back       Half    `json:"back9"`
	BetterHalf string  `json:"better_half"` // front|back|even
	Difference float64 `json:"difference"`
}

// FrontBackComparison compares nine-hole totals on full 18-hole rounds.
// Halves within 0.05 strokes of each other are "even".
func FrontBackComparison(rounds []golf.Round) FrontBack {
	var frontStrokes, frontOver, backStrokes, backOver []float64
	for _, r := range rounds {
		if len(r.Scores) != 18 {
			continue
		}
		var fs, fp, bs, bp int
		for _, s := range r.Scores {
			if s.HoleNumber <= 9 {
				fs += s.Strokes
				fp += s.Par
			} else {
				bs += s.Strokes
				bp += s.Par
			}
		}
		frontStrokes = append(frontStrokes, float64(fs))
		frontOver = append(frontOver, float64(fs-fp))
		backStrokes = append(backStrokes, float64(bs))
		backOver = append(backOver, float64(bs-bp))
	}
	fb := FrontBack{BetterHalf: "even"}
	if len(frontStrokes) == 0 {
		return fb
	}
	n := len(frontStrokes)
	fb.Front = Half{Rounds: n, AvgStrokes: stat.Mean(frontStrokes, nil), AvgOverPar: stat.Mean(frontOver, nil)}
	fb.Back = Half{Rounds: n, AvgStrokes: stat.Mean(backStrokes, nil), AvgOverPar: stat.Mean(backOver, nil)}
	fb.Difference = math.Abs(fb.Front.AvgOverPar - fb.Back.AvgOverPar)
	if fb.Difference > 0.05 {
		fb.BetterHalf = "back"
		if fb.Front.AvgOverPar < fb.Back.AvgOverPar {
			fb.BetterHalf = "front"
		}
	}
	return fb
}

// BogeyFreeRounds counts rounds with every hole at par or better.
func BogeyFreeRounds(rounds []golf.Round) int {
	n := 0
	for _, r := range rounds {
		if len(r.Scores) == 0 {
			continue
		}
		clean := true
		for _, s := range r.Scores {
			if s.Strokes > s.Par {
				clean = false
				break
			}
		}
		if clean {
			n++
		}
	}
	return n
}
