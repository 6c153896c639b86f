package handicap

// CourseHandicap converts a handicap index into strokes for one set of tees:
// round(index × slope/113 + (rating − par)). It does not scale for hole count.
// Pass 9-hole ratings and a halved index yourself, or use NineHoleCourseHandicap.
func CourseHandicap(handicapIndex float64, slopeRating int, courseRating float64, par int) int {
	return int(roundHalfUp(handicapIndex*(float64(slopeRating)/NeutralSlope) + (courseRating - float64(par))))
}

// NineHoleCourseHandicap is the 9-hole course handicap: half the index, 9-hole
// slope, rating and par. The index is not pre-rounded; only the result is.
func NineHoleCourseHandicap(handicapIndex float64, nineHoleSlope int, nineHoleRating float64, nineHolePar int) int {
	return CourseHandicap(handicapIndex/2, nineHoleSlope, nineHoleRating, nineHolePar)
}

// PlayingHandicap applies a handicap allowance (0.95 for individual stroke play).
func PlayingHandicap(courseHandicap int, allowance float64) int {
	if allowance <= 0 {
		allowance = DefaultHandicapAllowance
	}
	return int(roundHalfUp(float64(courseHandicap) * allowance))
}
