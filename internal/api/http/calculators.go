package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/handicappin/handicappin/internal/handicap"
)

// calc decodes a JSON body into In, runs fn and writes its result. Validation
// errors become 400s and calculation errors 422s.
func calc[In any](fn func(In) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		out, err := fn(in)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// MountCalculators registers the stateless WHS calculators on r.
func MountCalculators(r chi.Router) {
	r.Post("/course-handicap", calc(courseHandicap))
	r.Post("/score-differential", calc(scoreDifferential))
	r.Post("/adjusted-gross-score", calc(adjustedGrossScore))
	r.Post("/nine-hole-differential", calc(nineHoleDifferential))
	r.Post("/handicap-index", calc(handicapIndex))
	r.Post("/handicap-caps", calc(handicapCaps))
	r.Post("/playing-handicap", calc(playingHandicap))
	r.Post("/exceptional-score", calc(exceptionalScore))
	r.Post("/target-score", calc(targetScore))
	r.Post("/max-score", calc(maxScore))
}

type ratingIn struct {
	HandicapIndex float64 `json:"handicap_index"`
	CourseRating  float64 `json:"course_rating"`
	SlopeRating   int     `json:"slope_rating"`
	Par           int     `json:"par"`
}

func (in ratingIn) validate() error {
	return errors.Join(checkIndex(in.HandicapIndex), checkRating("course_rating", in.CourseRating),
		checkSlope("slope_rating", in.SlopeRating), checkPar(in.Par))
}

func checkPar(par int) error {
	if par < 9*minPar || par > 18*maxPar {
		return invalid("par must be between %d and %d", 9*minPar, 18*maxPar)
	}
	return nil
}

type courseHandicapIn struct {
	ratingIn
	Holes int `json:"holes"` // 9 or 18, default 18
}

func courseHandicap(in courseHandicapIn) (any, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Holes == 0 {
		in.Holes = 18
	}
	if err := checkHoleCount(in.Holes); err != nil {
		return nil, err
	}
	ch := handicap.CourseHandicap(in.HandicapIndex, in.SlopeRating, in.CourseRating, in.Par)
	if in.Holes == 9 {
		ch = handicap.NineHoleCourseHandicap(in.HandicapIndex, in.SlopeRating, in.CourseRating, in.Par)
	}
	return map[string]int{"course_handicap": ch}, nil
}

type scoreDifferentialIn struct {
	AdjustedGrossScore float64 `json:"adjusted_gross_score"`
	CourseRating       float64 `json:"course_rating"`
	SlopeRating        int     `json:"slope_rating"`
}

func scoreDifferential(in scoreDifferentialIn) (any, error) {
	if err := errors.Join(checkRating("adjusted_gross_score", in.AdjustedGrossScore),
		checkRating("course_rating", in.CourseRating), checkSlope("slope_rating", in.SlopeRating)); err != nil {
		return nil, err
	}
	raw := handicap.ScoreDifferential(in.AdjustedGrossScore, in.CourseRating, in.SlopeRating)
	return map[string]float64{"score_differential": handicap.RoundDifferential(raw), "raw": raw}, nil
}

type adjustedGrossScoreIn struct {
	ratingIn
	Holes []handicap.Hole `json:"holes"`
}

// adjustedGrossScore caps each hole at net double bogey after spreading the
// 18-hole course handicap over the played holes, then extrapolates partial
// rounds.
func adjustedGrossScore(in adjustedGrossScoreIn) (any, error) {
	if err := errors.Join(in.validate(), validateHoles(in.Holes)); err != nil {
		return nil, err
	}
	rating := handicap.TeeRating{CourseRating: in.CourseRating, SlopeRating: in.SlopeRating, Par: in.Par}
	ch := handicap.CourseHandicap(in.HandicapIndex, in.SlopeRating, in.CourseRating, in.Par)
	holes := handicap.AllocateHandicapStrokes(in.Holes, ch)
	played, err := handicap.AdjustedPlayedScore(holes)
	if err != nil {
		return nil, err
	}
	ags, err := handicap.AdjustedGrossScore(holes, in.HandicapIndex, rating)
	if err != nil {
		return nil, err
	}
	type adjustedHole struct {
		handicap.Hole
		Adjusted int `json:"adjusted"`
	}
	out := make([]adjustedHole, len(holes))
	for i, h := range holes {
		out[i] = adjustedHole{Hole: h, Adjusted: handicap.HoleAdjustedScore(h)}
	}
	return map[string]any{
		"course_handicap":       ch,
		"adjusted_played_score": played,
		"adjusted_gross_score":  ags,
		"holes":                 out,
	}, nil
}

type nineHoleIn struct {
	ratingIn
	AdjustedPlayedScore int `json:"adjusted_played_score"`
}

// nineHoleDifferential takes nine-hole rating, slope and par.
func nineHoleDifferential(in nineHoleIn) (any, error) {
	if err := errors.Join(checkIndex(in.HandicapIndex), checkRating("course_rating", in.CourseRating),
		checkSlope("slope_rating", in.SlopeRating)); err != nil {
		return nil, err
	}
	if in.Par < 9*minPar || in.Par > 9*maxPar {
		return nil, invalid("nine-hole par must be between %d and %d", 9*minPar, 9*maxPar)
	}
	if in.AdjustedPlayedScore < 9 {
		return nil, invalid("adjusted_played_score must be at least 9")
	}
	expected := handicap.Expected9HoleDifferential(in.HandicapIndex, in.CourseRating, in.SlopeRating, in.Par)
	return map[string]float64{
		"expected_differential": expected,
		"score_differential":    handicap.NineHoleScoreDifferential(in.AdjustedPlayedScore, in.CourseRating, in.SlopeRating, expected),
	}, nil
}

type handicapIndexIn struct {
	Differentials []float64 `json:"differentials"` // oldest first
}

func handicapIndex(in handicapIndexIn) (any, error) {
	idx, err := handicap.HandicapIndex(in.Differentials)
	if err != nil {
		return nil, err
	}
	n := min(len(in.Differentials), handicap.DifferentialWindow)
	return map[string]any{
		"handicap_index": idx,
		"used":           handicap.RelevantDifferentialCount(n),
		"adjustment":     handicap.LowCountAdjustment(n),
		"relevant":       handicap.RelevantDifferentials(in.Differentials),
	}, nil
}

type handicapCapsIn struct {
	NewIndex float64  `json:"new_index"`
	LowIndex *float64 `json:"low_index"`
}

func handicapCaps(in handicapCapsIn) (any, error) {
	if err := checkIndex(in.NewIndex); err != nil {
		return nil, err
	}
	capped := handicap.ApplyHandicapCaps(in.NewIndex, in.LowIndex)
	soft, hard := false, false
	if in.LowIndex != nil {
		increase := in.NewIndex - *in.LowIndex
		soft = increase > handicap.SoftCapThreshold
		hard = soft && handicap.SoftCapThreshold+(increase-handicap.SoftCapThreshold)*handicap.SoftCapFactor > handicap.HardCapThreshold
	}
	return map[string]any{"capped_index": capped, "soft_cap_applied": soft, "hard_cap_applied": hard}, nil
}

type playingHandicapIn struct {
	CourseHandicap int     `json:"course_handicap"`
	Allowance      float64 `json:"allowance"` // 0..1, default 0.95
}

func playingHandicap(in playingHandicapIn) (any, error) {
	if in.Allowance < 0 || in.Allowance > 1 {
		return nil, invalid("allowance must be between 0 and 1")
	}
	return map[string]int{"playing_handicap": handicap.PlayingHandicap(in.CourseHandicap, in.Allowance)}, nil
}

type exceptionalScoreIn struct {
	HandicapIndex float64 `json:"handicap_index"`
	Differential  float64 `json:"differential"`
}

func exceptionalScore(in exceptionalScoreIn) (any, error) {
	if err := checkIndex(in.HandicapIndex); err != nil {
		return nil, err
	}
	return map[string]float64{"reduction": handicap.ExceptionalScoreOffset(in.HandicapIndex, in.Differential)}, nil
}

type targetScoreIn struct {
	TargetDifferential float64 `json:"target_differential"`
	CourseRating       float64 `json:"course_rating"`
	SlopeRating        int     `json:"slope_rating"`
}

type targetRow struct {
	Score        int     `json:"score"`
	Differential float64 `json:"differential"`
	MeetsTarget  bool    `json:"meets_target"`
}

// targetScore is the highest gross score whose differential does not exceed
// the target, with the two scores either side of it.
func targetScore(in targetScoreIn) (any, error) {
	if err := errors.Join(checkRating("course_rating", in.CourseRating), checkSlope("slope_rating", in.SlopeRating)); err != nil {
		return nil, err
	}
	target := int(math.Floor(in.TargetDifferential*float64(in.SlopeRating)/handicap.NeutralSlope + in.CourseRating))
	rows := make([]targetRow, 0, 5)
	for s := target - 2; s <= target+2; s++ {
		d := handicap.ScoreDifferential(float64(s), in.CourseRating, in.SlopeRating)
		rows = append(rows, targetRow{Score: s, Differential: handicap.RoundToTenth(d), MeetsTarget: d <= in.TargetDifferential})
	}
	return map[string]any{"target_score": target, "breakdown": rows}, nil
}

type maxScoreIn struct {
	CourseHandicap int `json:"course_handicap"`
	Par            int `json:"par"`
	HCP            int `json:"hcp"`
}

func maxScore(in maxScoreIn) (any, error) {
	if in.Par < minPar || in.Par > maxPar {
		return nil, invalid("par must be between %d and %d", minPar, maxPar)
	}
	if in.HCP < 1 || in.HCP > 18 {
		return nil, invalid("hcp must be between 1 and 18")
	}
	ch := max(0, in.CourseHandicap)
	received := ch / 18
	if in.HCP <= ch%18 {
		received++
	}
	h := handicap.Hole{Par: in.Par, HCP: in.HCP, HcpStrokes: received}
	return map[string]int{"strokes_received": received, "max_score": handicap.MaxHoleScore(h)}, nil
}
