package handicap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handicappin/handicappin/internal/handicap"
)

func TestHoleAdjustedScore(t *testing.T) {
	tests := []struct {
		name string
		hole handicap.Hole
		want int
	}{
		{"no strokes caps at double bogey", handicap.Hole{Par: 4, Strokes: 9}, 6},
		{"net double bogey with one stroke", handicap.Hole{Par: 4, Strokes: 9, HcpStrokes: 1}, 7},
		{"par plus five ceiling", handicap.Hole{Par: 4, Strokes: 12, HcpStrokes: 4}, 9},
		{"under max keeps actual", handicap.Hole{Par: 4, Strokes: 5, HcpStrokes: 1}, 5},
		{"par 3", handicap.Hole{Par: 3, Strokes: 8, HcpStrokes: 1}, 6},
		{"par 5", handicap.Hole{Par: 5, Strokes: 11, HcpStrokes: 2}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := handicap.HoleAdjustedScore(tt.hole)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, tt.hole.Strokes)
			assert.LessOrEqual(t, got, tt.hole.Par+5)
		})
	}
}

func TestAdjustedPlayedScore(t *testing.T) {
	holes := []handicap.Hole{
		{Par: 4, Strokes: 4},
		{Par: 3, Strokes: 7},                // capped at 5
		{Par: 5, Strokes: 9, HcpStrokes: 1}, // capped at 8
	}
	got, err := handicap.AdjustedPlayedScore(holes)
	require.NoError(t, err)
	assert.Equal(t, 17, got)
}

func TestAdjustedPlayedScore_Empty(t *testing.T) {
	_, err := handicap.AdjustedPlayedScore(nil)
	assert.ErrorIs(t, err, handicap.ErrEmptyHoleSet)
}

func eighteen(strokes int) []handicap.Hole {
	holes := make([]handicap.Hole, 18)
	for i := range holes {
		holes[i] = handicap.Hole{Number: i + 1, Par: 4, HCP: i + 1, Strokes: strokes}
	}
	return holes
}

func TestAdjustedGrossScore_FullRound(t *testing.T) {
	holes := eighteen(5)
	played, err := handicap.AdjustedPlayedScore(holes)
	require.NoError(t, err)

	got, err := handicap.AdjustedGrossScore(holes, 20, handicap.TeeRating{})
	require.NoError(t, err)
	assert.Equal(t, float64(played), got)
}

func TestAdjustedGrossScore_PartialNeedsRating(t *testing.T) {
	holes := eighteen(5)[:12]
	cases := []handicap.TeeRating{
		{},
		{CourseRating: 72, SlopeRating: 113},
		{CourseRating: 72, Par: 72},
		{SlopeRating: 113, Par: 72},
	}
	for _, r := range cases {
		_, err := handicap.AdjustedGrossScore(holes, 10, r)
		require.Error(t, err)
		assert.True(t, errors.Is(err, handicap.ErrMissingRating))

		var ce *handicap.CalculationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, handicap.KindMissingRating, ce.Kind)
	}
}

func TestAdjustedGrossScore_PartialExtrapolates(t *testing.T) {
	holes := eighteen(5)[:14] // 14 × 5 = 70 played
	rating := handicap.TeeRating{CourseRating: 72, SlopeRating: 113, Par: 72}

	got, err := handicap.AdjustedGrossScore(holes, 18, rating)
	require.NoError(t, err)
	// course handicap 18; 4 holes left → round(18/18×4)=4 strokes; par 4×72/18 = 16
	assert.InDelta(t, 70+4+16, got, 1e-9)
}

func TestAdjustedGrossScore_TooManyHoles(t *testing.T) {
	holes := append(eighteen(4), handicap.Hole{Par: 4, Strokes: 4})
	_, err := handicap.AdjustedGrossScore(holes, 10, handicap.TeeRating{CourseRating: 72, SlopeRating: 113, Par: 72})
	assert.ErrorIs(t, err, handicap.ErrTooManyHoles)
}

func TestAdjustedGrossScore_Empty(t *testing.T) {
	_, err := handicap.AdjustedGrossScore(nil, 10, handicap.TeeRating{CourseRating: 72, SlopeRating: 113, Par: 72})
	assert.ErrorIs(t, err, handicap.ErrEmptyHoleSet)
}
