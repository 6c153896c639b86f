package golf_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handicappin/handicappin/internal/db"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/handicap"
	"github.com/handicappin/handicappin/internal/recalc"
)

func newStore(t *testing.T) *golf.SQLStore {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return golf.NewSQLStore(d)
}

func holes18() []golf.Hole {
	var hs []golf.Hole
	for n := 1; n <= 18; n++ {
		hs = append(hs, golf.Hole{Number: n, Par: 4, HCP: n, Distance: 350})
	}
	return hs
}

type fixture struct {
	store  *golf.SQLStore
	userID string
	course golf.Course
	tee    golf.Tee
}

func setup(t *testing.T, approval string) fixture {
	t.Helper()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.CreateProfile(ctx, golf.Profile{
		ID: "u1", Email: "Player@Example.com", Name: "Player", PasswordHash: "x", InitialHandicapIndex: handicap.MaxHandicapIndex,
	}))

	c, err := s.PutCourse(ctx, golf.Course{Name: "Pine Valley", City: "Clementon", ApprovalStatus: approval})
	require.NoError(t, err)

	tee, err := s.PutTee(ctx, golf.Tee{
		Tee: handicap.Tee{
			CourseRating18: 72, SlopeRating18: 113,
			CourseRatingFront9: 36, SlopeRatingFront9: 113,
			CourseRatingBack9: 36, SlopeRatingBack9: 113,
		},
		CourseID: c.ID,
		Name:     "White",
		Holes:    holes18(),
	})
	require.NoError(t, err)
	return fixture{store: s, userID: "u1", course: c, tee: tee}
}

func (f fixture) card(day int, strokes int) golf.Scorecard {
	sc := golf.Scorecard{
		UserID:   f.userID,
		CourseID: f.course.ID,
		TeeID:    f.tee.ID,
		TeeTime:  time.Date(2024, 3, day, 8, 30, 0, 0, time.UTC),
	}
	for n := 1; n <= 18; n++ {
		sc.Scores = append(sc.Scores, golf.ScoreInput{HoleNumber: n, Strokes: strokes})
	}
	return sc
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	p, err := s.GetProfileByEmail(ctx, "player@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, golf.RoleUser, p.Role)
	assert.Equal(t, "free", p.Plan)
	assert.Equal(t, handicap.MaxHandicapIndex, p.HandicapIndex)

	err = s.CreateProfile(ctx, golf.Profile{ID: "u2", Email: "player@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, golf.ErrEmailTaken)

	require.NoError(t, s.CreateProfile(ctx, golf.Profile{ID: "u2", Email: "other@example.com", PasswordHash: "x", InitialHandicapIndex: 12.4}))
	assert.ErrorIs(t, s.UpdateEmail(ctx, "u2", "PLAYER@example.com"), golf.ErrEmailTaken)
	require.NoError(t, s.UpdateEmail(ctx, "u2", "new@example.com"))

	p2, err := s.GetProfile(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", p2.Email)
	assert.Equal(t, 12.4, p2.HandicapIndex)

	require.NoError(t, s.UpdateHandicapIndex(ctx, "u2", 11.1))
	require.NoError(t, s.UpdatePassword(ctx, "u2", "hash2"))
	assert.ErrorIs(t, s.UpdatePassword(ctx, "nobody", "h"), golf.ErrNotFound)
	assert.ErrorIs(t, s.UpdateHandicapIndex(ctx, "nobody", 1), golf.ErrNotFound)

	_, err = s.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, golf.ErrNotFound)
}

func TestCoursesAndTees(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalPending)
	s := f.store

	_, err := s.PutCourse(ctx, golf.Course{Name: "Augusta National", City: "Augusta"})
	require.NoError(t, err)

	list, err := s.ListCourses(ctx, golf.ListOpts{Q: "PINE"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pine Valley", list[0].Name)

	all, err := s.ListCourses(ctx, golf.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tee, err := s.GetTee(ctx, f.tee.ID)
	require.NoError(t, err)
	assert.Len(t, tee.Holes, 18)
	assert.Equal(t, 36, tee.OutPar)
	assert.Equal(t, 36, tee.InPar)
	assert.Equal(t, 72, tee.TotalPar)
	assert.Equal(t, handicap.ApprovalPending, tee.ApprovalStatus, "tees inherit the course status")

	c, err := s.GetCourse(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, c.Tees, 1)
	assert.Equal(t, "White", c.Tees[0].Name)

	_, err = s.PutTee(ctx, golf.Tee{CourseID: f.course.ID, Name: "Short", Holes: holes18()[:5]})
	assert.ErrorIs(t, err, golf.ErrInvalidTee)

	_, err = s.PutTee(ctx, golf.Tee{CourseID: 999, Name: "Ghost", Holes: holes18()})
	assert.ErrorIs(t, err, golf.ErrNotFound)
}

func TestCreateRound(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	r, err := s.CreateRound(ctx, f.card(1, 5))
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, handicap.ApprovalApproved, r.ApprovalStatus)
	assert.Equal(t, 90, r.TotalStrokes)

	got, err := s.GetRound(ctx, f.userID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pine Valley", got.CourseName)
	assert.Len(t, got.Scores, 18)
	assert.Equal(t, 4, got.Scores[0].Par)

	_, err = s.GetRound(ctx, "someone-else", r.ID)
	assert.ErrorIs(t, err, golf.ErrNotFound)

	n, err := s.CountRounds(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, f.userID, jobs[0].UserID)
	assert.Equal(t, golf.EventRoundCreated, jobs[0].EventType)
}

func TestCreateRound_Rejects(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)

	bad := f.card(1, 5)
	bad.Scores[3].HoleNumber = 2
	_, err := f.store.CreateRound(ctx, bad)
	assert.ErrorIs(t, err, golf.ErrInvalidScorecard)

	wrongCourse := f.card(1, 5)
	wrongCourse.CourseID = 42
	_, err = f.store.CreateRound(ctx, wrongCourse)
	assert.ErrorIs(t, err, golf.ErrInvalidScorecard)

	n, err := f.store.CountRounds(ctx, f.userID)
	require.NoError(t, err)
	assert.Zero(t, n, "failed submissions leave nothing behind")
}

func TestCreateRound_NineNeedsItsRating(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)

	frontOnly, err := f.store.PutTee(ctx, golf.Tee{
		Tee:      handicap.Tee{CourseRating18: 72, SlopeRating18: 113, CourseRatingFront9: 36, SlopeRatingFront9: 113},
		CourseID: f.course.ID,
		Name:     "Red",
		Holes:    holes18(),
	})
	require.NoError(t, err)

	nine := func(from int) golf.Scorecard {
		sc := golf.Scorecard{UserID: f.userID, CourseID: f.course.ID, TeeID: frontOnly.ID,
			TeeTime: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
		for n := from; n < from+9; n++ {
			sc.Scores = append(sc.Scores, golf.ScoreInput{HoleNumber: n, Strokes: 5})
		}
		return sc
	}

	_, err = f.store.CreateRound(ctx, nine(10))
	assert.ErrorIs(t, err, golf.ErrInvalidScorecard)

	r, err := f.store.CreateRound(ctx, nine(1))
	require.NoError(t, err)
	assert.Len(t, r.Scores, 9)

	n, err := f.store.CountRounds(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApproveCourse(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalPending)
	s := f.store

	r, err := s.CreateRound(ctx, f.card(1, 5))
	require.NoError(t, err)
	assert.Equal(t, handicap.ApprovalPending, r.ApprovalStatus)

	_, rounds, err := s.LoadHistory(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, rounds, "pending rounds do not count")

	users, err := s.ApproveCourse(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.userID}, users)

	_, rounds, err = s.LoadHistory(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Len(t, rounds[0].Holes, 18)
	require.NotNil(t, rounds[0].Tee)
	assert.Equal(t, 113, rounds[0].Tee.SlopeRating18)

	_, err = s.ApproveCourse(ctx, 999)
	assert.ErrorIs(t, err, golf.ErrNotFound)
}

func TestRecalculationRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	for day := 1; day <= 3; day++ {
		_, err := s.CreateRound(ctx, f.card(day, 5))
		require.NoError(t, err)
	}

	initial, history, err := s.LoadHistory(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].TeeTime.Before(history[1].TeeTime))

	res, err := recalc.Calculate(initial, history)
	require.NoError(t, err)

	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, s.SaveRecalculation(ctx, jobs[0], res))

	p, err := s.GetProfile(ctx, f.userID)
	require.NoError(t, err)
	assert.InDelta(t, 16.0, p.HandicapIndex, 1e-9)

	rounds, err := s.ListRounds(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.InDelta(t, 18.0, rounds[0].ScoreDifferential, 1e-9)
	assert.Equal(t, 90.0, rounds[0].AdjustedGrossScore)
	assert.True(t, rounds[0].TeeTime.After(rounds[2].TeeTime), "most recent first")

	jobs, err = s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSaveRecalculation_KeepsRequeuedJob(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	_, err := s.CreateRound(ctx, f.card(1, 5))
	require.NoError(t, err)
	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// a second round arrives while the first job is being processed
	_, err = s.CreateRound(ctx, f.card(2, 5))
	require.NoError(t, err)

	require.NoError(t, s.SaveRecalculation(ctx, jobs[0], recalc.Result{HandicapIndex: 20}))
	left, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, jobs[0].Version+1, left[0].Version)
}

func TestJobFailuresAndRetry(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	require.NoError(t, s.Enqueue(ctx, f.userID, golf.EventManual))
	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, s.RecordJobFailure(ctx, jobs[0], 3, golf.JobFailed, "boom"))
	jobs, err = s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	n, err := s.RetryFailedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jobs, err = s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Zero(t, jobs[0].Attempts)
	assert.Equal(t, "boom", jobs[0].ErrorMessage)
}

func TestJobFailure_AfterNewEnqueue(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	require.NoError(t, s.Enqueue(ctx, f.userID, golf.EventManual))
	fetched, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, fetched, 1)

	// a round arrives while the fetched job is still running
	_, err = s.CreateRound(ctx, f.card(1, 5))
	require.NoError(t, err)
	require.NoError(t, s.RecordJobFailure(ctx, fetched[0], 3, golf.JobFailed, "stale"))

	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1, "the new event stays queued")
	assert.Equal(t, golf.EventRoundCreated, jobs[0].EventType)
	assert.Zero(t, jobs[0].Attempts)
	assert.Empty(t, jobs[0].ErrorMessage)
	assert.Equal(t, fetched[0].Version+1, jobs[0].Version)
}

func TestDeleteRoundAndProfile(t *testing.T) {
	ctx := context.Background()
	f := setup(t, handicap.ApprovalApproved)
	s := f.store

	r, err := s.CreateRound(ctx, f.card(1, 5))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteRound(ctx, "intruder", r.ID), golf.ErrNotFound)
	require.NoError(t, s.DeleteRound(ctx, f.userID, r.ID))

	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, golf.EventRoundDeleted, jobs[0].EventType)
	require.NoError(t, s.ResetHandicap(ctx, jobs[0]))

	_, err = s.CreateRound(ctx, f.card(2, 5))
	require.NoError(t, err)
	require.NoError(t, s.DeleteProfile(ctx, f.userID))

	_, err = s.GetProfile(ctx, f.userID)
	assert.ErrorIs(t, err, golf.ErrNotFound)
	n, err := s.CountRounds(ctx, f.userID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
