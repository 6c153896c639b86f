package handicap

import "time"

// Hole is one played hole of a scorecard.
type Hole struct {
	Number     int `json:"hole_number"`
	Par        int `json:"par"`
	HCP        int `json:"hcp"` // stroke index, 1 = hardest
	Strokes    int `json:"strokes"`
	HcpStrokes int `json:"hcp_strokes"`
}

// TeeRating is a rating/slope/par triple for one set of holes (18, front 9 or
// back 9). A zero field means the value is unknown.
type TeeRating struct {
	CourseRating float64 `json:"course_rating"`
	SlopeRating  int     `json:"slope_rating"`
	Par          int     `json:"par"`
}

// Complete reports whether rating, slope and par are all known.
func (r TeeRating) Complete() bool {
	return r.CourseRating != 0 && r.SlopeRating != 0 && r.Par != 0
}

// Tee carries the full rating set of a tee box.
type Tee struct {
	ID                 int64   `json:"id"`
	CourseRating18     float64 `json:"course_rating_18"`
	SlopeRating18      int     `json:"slope_rating_18"`
	CourseRatingFront9 float64 `json:"course_rating_front9"`
	SlopeRatingFront9  int     `json:"slope_rating_front9"`
	CourseRatingBack9  float64 `json:"course_rating_back9"`
	SlopeRatingBack9   int     `json:"slope_rating_back9"`
	OutPar             int     `json:"out_par"`
	InPar              int     `json:"in_par"`
	TotalPar           int     `json:"total_par"`
}

func (t Tee) Rating18() TeeRating {
	return TeeRating{CourseRating: t.CourseRating18, SlopeRating: t.SlopeRating18, Par: t.TotalPar}
}

func (t Tee) Front9() TeeRating {
	return TeeRating{CourseRating: t.CourseRatingFront9, SlopeRating: t.SlopeRatingFront9, Par: t.OutPar}
}

func (t Tee) Back9() TeeRating {
	return TeeRating{CourseRating: t.CourseRatingBack9, SlopeRating: t.SlopeRatingBack9, Par: t.InPar}
}

// ProcessedRound is the per-round state of a handicap recalculation.
type ProcessedRound struct {
	ID                    int64     `json:"id"`
	TeeID                 int64     `json:"tee_id"`
	TeeTime               time.Time `json:"tee_time"`
	AdjustedGrossScore    float64   `json:"adjusted_gross_score"`
	AdjustedPlayedScore   int       `json:"adjusted_played_score"`
	ExistingHandicapIndex float64   `json:"existing_handicap_index"`
	RawDifferential       float64   `json:"raw_differential"`
	ESROffset             float64   `json:"esr_offset"`
	FinalDifferential     float64   `json:"final_differential"`
	UpdatedHandicapIndex  float64   `json:"updated_handicap_index"`
	CourseHandicap        int       `json:"course_handicap"`
	ApprovalStatus        string    `json:"approval_status"`
}
