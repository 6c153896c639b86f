// Package handicap implements the USGA World Handicap System arithmetic:
// course handicap, net-double-bogey adjusted scores, score differentials,
// 9-hole equivalency, handicap index aggregation and the Rule 5.7 caps.
//
// Every function is pure. Callers validate inputs (slope 55–155, par 3–6)
// before calling in.
package handicap

const (
	// NeutralSlope is the slope rating of a course of standard difficulty.
	NeutralSlope = 113.0

	// MaxHandicapIndex is the highest index the system will issue.
	MaxHandicapIndex = 54.0

	SoftCapThreshold = 3.0
	HardCapThreshold = 5.0
	// SoftCapFactor dampens the part of an increase above SoftCapThreshold.
	SoftCapFactor = 0.5

	LowIndexWindowDays = 365

	// DifferentialWindow is how many of the most recent differentials feed an index.
	DifferentialWindow = 20

	// MinRoundsForIndex is the number of scores needed before an index is issued.
	MinRoundsForIndex = 3

	ExceptionalScoreThreshold = 7.0
	ExceptionalScoreSevere    = 10.0

	DefaultHandicapAllowance = 0.95

	ApprovalApproved = "approved"
	ApprovalPending  = "pending"
)
