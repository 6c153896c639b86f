package golf

import (
	"time"

	"github.com/handicappin/handicappin/internal/handicap"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Profile struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	PasswordHash         string     `json:"-"`
	Role                 string     `json:"role"`
	HandicapIndex        float64    `json:"handicap_index"`
	InitialHandicapIndex float64    `json:"initial_handicap_index"`
	Plan                 string     `json:"plan"`
	SubscriptionStatus   string     `json:"subscription_status,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	BillingVersion       int        `json:"billing_version"`
	CreatedAt            time.Time  `json:"created_at"`
}

type Course struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	City           string    `json:"city,omitempty"`
	Country        string    `json:"country,omitempty"`
	Website        string    `json:"website,omitempty"`
	ApprovalStatus string    `json:"approval_status"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Tees           []Tee     `json:"tees,omitempty"`
}

// Tee is a set of tees on a course with its ratings and, when loaded, its holes.
type Tee struct {
	handicap.Tee
	CourseID       int64  `json:"course_id"`
	Name           string `json:"name"`
	Gender         string `json:"gender"`
	TotalDistance  int    `json:"total_distance"`
	ApprovalStatus string `json:"approval_status"`
	Holes          []Hole `json:"holes,omitempty"`
}

type Hole struct {
	ID       int64 `json:"id"`
	TeeID    int64 `json:"tee_id"`
	Number   int   `json:"hole_number"`
	Par      int   `json:"par"`
	HCP      int   `json:"hcp"`
	Distance int   `json:"distance"`
}

type Round struct {
	ID                         int64     `json:"id"`
	UserID                     string    `json:"user_id"`
	CourseID                   int64     `json:"course_id"`
	CourseName                 string    `json:"course_name,omitempty"`
	TeeID                      int64     `json:"tee_id"`
	TeeTime                    time.Time `json:"tee_time"`
	Notes                      string    `json:"notes,omitempty"`
	ApprovalStatus             string    `json:"approval_status"`
	TotalStrokes               int       `json:"total_strokes"`
	ExistingHandicapIndex      float64   `json:"existing_handicap_index"`
	UpdatedHandicapIndex       float64   `json:"updated_handicap_index"`
	ScoreDifferential          float64   `json:"score_differential"`
	ExceptionalScoreAdjustment float64   `json:"exceptional_score_adjustment"`
	AdjustedGrossScore         float64   `json:"adjusted_gross_score"`
	AdjustedPlayedScore        int       `json:"adjusted_played_score"`
	CourseHandicap             int       `json:"course_handicap"`
	CreatedAt                  time.Time `json:"created_at"`
	Scores                     []Score   `json:"scores,omitempty"`
}

// Score is the strokes on one hole of a round, joined with the hole's par
// and stroke index.
type Score struct {
	ID         int64 `json:"id"`
	RoundID    int64 `json:"round_id"`
	HoleID     int64 `json:"hole_id"`
	HoleNumber int   `json:"hole_number"`
	Par        int   `json:"par"`
	HCP        int   `json:"hcp"`
	Strokes    int   `json:"strokes"`
	HcpStrokes int   `json:"hcp_strokes"`
}

// Scorecard is a submitted round before it is stored.
type Scorecard struct {
	UserID   string       `json:"-"`
	CourseID int64        `json:"course_id"`
	TeeID    int64        `json:"tee_id"`
	TeeTime  time.Time    `json:"tee_time"`
	Notes    string       `json:"notes,omitempty"`
	Scores   []ScoreInput `json:"scores"`
}

type ScoreInput struct {
	HoleNumber int `json:"hole_number"`
	Strokes    int `json:"strokes"`
}

const (
	JobPending = "pending"
	JobFailed  = "failed"

	EventRoundCreated   = "round_created"
	EventRoundDeleted   = "round_deleted"
	EventCourseApproved = "course_approved"
	EventManual         = "manual"
)

// QueueJob is a pending handicap recalculation for one user.
type QueueJob struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	EventType    string    `json:"event_type"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListOpts struct {
	Q      string
	Limit  int
	Offset int
}
