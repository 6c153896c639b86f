package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/handicap"
	"github.com/handicappin/handicappin/internal/queue"
	"github.com/handicappin/handicappin/internal/recalc"
)

/* ---------------- in-memory fake satisfying queue.Store ---------------- */

type failure struct {
	attempts int
	status   string
	msg      string
}

type fakeStore struct {
	mu        sync.Mutex
	jobs      []golf.QueueJob
	histories map[string][]recalc.Round
	loadErr   map[string]error
	saved     map[string]recalc.Result
	reset     []string
	failures  map[int64]failure
	fetchErr  error
	limitSeen int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		histories: map[string][]recalc.Round{},
		loadErr:   map[string]error{},
		saved:     map[string]recalc.Result{},
		failures:  map[int64]failure{},
	}
}

func (s *fakeStore) PendingJobs(_ context.Context, limit int) ([]golf.QueueJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitSeen = limit
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.jobs) > limit {
		return s.jobs[:limit], nil
	}
	return s.jobs, nil
}

func (s *fakeStore) LoadHistory(_ context.Context, userID string) (float64, []recalc.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadErr[userID]; err != nil {
		return 0, nil, err
	}
	return handicap.MaxHandicapIndex, s.histories[userID], nil
}

func (s *fakeStore) SaveRecalculation(_ context.Context, job golf.QueueJob, res recalc.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[job.UserID] = res
	return nil
}

func (s *fakeStore) ResetHandicap(_ context.Context, job golf.QueueJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset = append(s.reset, job.UserID)
	return nil
}

func (s *fakeStore) RecordJobFailure(_ context.Context, job golf.QueueJob, attempts int, status, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[job.ID] = failure{attempts, status, msg}
	return nil
}

/* ------------------------------- fixtures ------------------------------- */

var tee = &handicap.Tee{ID: 1, CourseRating18: 72, SlopeRating18: 113, TotalPar: 72}

func history(n, strokes int) []recalc.Round {
	out := make([]recalc.Round, n)
	for i := range out {
		holes := make([]handicap.Hole, 18)
		for h := range holes {
			holes[h] = handicap.Hole{Number: h + 1, Par: 4, HCP: h + 1, Strokes: strokes}
		}
		out[i] = recalc.Round{
			ID:             int64(i + 1),
			TeeTime:        time.Date(2024, 5, i+1, 10, 0, 0, 0, time.UTC),
			ApprovalStatus: handicap.ApprovalApproved,
			Tee:            tee,
			Holes:          holes,
		}
	}
	return out
}

func newProcessor(s queue.Store) *queue.Processor {
	return queue.New(s, zerolog.Nop(), queue.Options{BatchSize: 10, MaxRetries: 3, Concurrency: 2})
}

/* -------------------------------- tests --------------------------------- */

func TestRunOnce_Mixed(t *testing.T) {
	s := newFakeStore()
	s.jobs = []golf.QueueJob{
		{ID: 1, UserID: "alice"},
		{ID: 2, UserID: "bob"},
		{ID: 3, UserID: "carol", Attempts: 2},
		{ID: 4, UserID: "dave"},
	}
	s.histories["alice"] = history(3, 5)
	s.loadErr["carol"] = errors.New("db down")
	broken := history(1, 5)
	broken[0].Tee = nil
	s.histories["dave"] = broken

	sum, err := newProcessor(s).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queue.Summary{Processed: 4, Succeeded: 2, Failed: 2}, sum)

	assert.InDelta(t, 16.0, s.saved["alice"].HandicapIndex, 1e-9)
	assert.Equal(t, []string{"bob"}, s.reset, "no approved rounds resets to max")

	assert.Equal(t, failure{3, golf.JobFailed, "load history: db down"}, s.failures[3])
	dave := s.failures[4]
	assert.Equal(t, 1, dave.attempts)
	assert.Equal(t, golf.JobPending, dave.status, "retried until the limit")
	assert.Contains(t, dave.msg, "tee not found")
}

func TestRunOnce_Empty(t *testing.T) {
	s := newFakeStore()
	sum, err := newProcessor(s).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum)
	assert.Equal(t, 10, s.limitSeen)
}

func TestRunOnce_FetchError(t *testing.T) {
	s := newFakeStore()
	s.fetchErr = errors.New("no connection")
	_, err := newProcessor(s).RunOnce(context.Background())
	assert.ErrorContains(t, err, "no connection")
}

func TestRunOnce_BatchSize(t *testing.T) {
	s := newFakeStore()
	for i := 1; i <= 30; i++ {
		s.jobs = append(s.jobs, golf.QueueJob{ID: int64(i), UserID: "u"})
	}
	p := queue.New(s, zerolog.Nop(), queue.Options{})
	sum, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, sum.Processed)
	assert.Equal(t, 3, p.MaxRetries)
}

func TestJob(t *testing.T) {
	s := newFakeStore()
	s.jobs = []golf.QueueJob{{ID: 1, UserID: "alice"}}
	s.histories["alice"] = history(1, 4)

	job := queue.Job{P: newProcessor(s)}
	assert.Equal(t, "handicap_queue", job.Name())
	require.NoError(t, job.Run())
	assert.Contains(t, s.saved, "alice")
}
