package handicap

// ScoreDifferential is (AGS − course rating) × 113/slope. It is not rounded.
// A zero slope yields ±Inf; validate slope before calling.
func ScoreDifferential(adjustedGrossScore, courseRating float64, slopeRating int) float64 {
	return (adjustedGrossScore - courseRating) * (NeutralSlope / float64(slopeRating))
}

// Expected9HoleDifferential is the differential a player is expected to post
// on the 9 holes they did not play (Rule 5.1b). The result is unrounded so it
// can be combined with the played nine.
func Expected9HoleDifferential(handicapIndex, nineHoleCourseRating float64, nineHoleSlopeRating, nineHolePar int) float64 {
	courseHandicap := NineHoleCourseHandicap(handicapIndex, nineHoleSlopeRating, nineHoleCourseRating, nineHolePar)
	expectedScore := float64(nineHolePar + courseHandicap)
	return ScoreDifferential(expectedScore, nineHoleCourseRating, nineHoleSlopeRating)
}

// ExpectedNineHoleScore is par plus the 9-hole course handicap.
func ExpectedNineHoleScore(handicapIndex, nineHoleCourseRating float64, nineHoleSlopeRating, nineHolePar int) int {
	return nineHolePar + NineHoleCourseHandicap(handicapIndex, nineHoleSlopeRating, nineHoleCourseRating, nineHolePar)
}

// NineHoleScoreDifferential combines the played nine with the expected
// differential of the unplayed nine into an 18-hole equivalent, rounded with
// RoundDifferential.
func NineHoleScoreDifferential(adjustedPlayedScore int, nineHoleCourseRating float64, nineHoleSlopeRating int, expectedDifferential float64) float64 {
	played := ScoreDifferential(float64(adjustedPlayedScore), nineHoleCourseRating, nineHoleSlopeRating)
	return RoundDifferential(played + expectedDifferential)
}

// ExceptionalScoreOffset is the exceptional score reduction earned by a
// differential: 1 when it beats the existing index by 7.0, 2 when by 10.0.
func ExceptionalScoreOffset(existingIndex, differential float64) float64 {
	gap := existingIndex - differential
	switch {
	case gap >= ExceptionalScoreSevere:
		return 2
	case gap >= ExceptionalScoreThreshold:
		return 1
	default:
		return 0
	}
}
