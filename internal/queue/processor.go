// Package queue drains the handicap recalculation queue.
package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/recalc"
)

// Store is the part of golf.Store the processor needs.
type Store interface {
	PendingJobs(ctx context.Context, limit int) ([]golf.QueueJob, error)
	LoadHistory(ctx context.Context, userID string) (float64, []recalc.Round, error)
	SaveRecalculation(ctx context.Context, job golf.QueueJob, res recalc.Result) error
	ResetHandicap(ctx context.Context, job golf.QueueJob) error
	RecordJobFailure(ctx context.Context, job golf.QueueJob, attempts int, status, msg string) error
}

type Clock func() time.Time

type Processor struct {
	Store       Store
	Log         zerolog.Logger
	BatchSize   int
	MaxRetries  int
	Concurrency int
	Now         Clock
}

type Options struct {
	BatchSize   int
	MaxRetries  int
	Concurrency int
}

func New(store Store, log zerolog.Logger, opts Options) *Processor {
	p := &Processor{
		Store:       store,
		Log:         log.With().Str("component", "handicap_queue").Logger(),
		BatchSize:   opts.BatchSize,
		MaxRetries:  opts.MaxRetries,
		Concurrency: opts.Concurrency,
		Now:         time.Now,
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 25
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 5
	}
	return p
}

type Summary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunOnce processes one batch of pending jobs. A failing job is recorded on
// the queue and does not stop the others; only a failure to read the queue
// is returned.
func (p *Processor) RunOnce(ctx context.Context) (Summary, error) {
	jobs, err := p.Store.PendingJobs(ctx, p.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("queue: fetch pending: %w", err)
	}
	if len(jobs) == 0 {
		p.Log.Debug().Msg("no pending jobs")
		return Summary{}, nil
	}

	start := p.Now()
	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if err := p.process(gctx, job); err != nil {
				failed.Add(1)
				p.fail(ctx, job, err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Processed: len(jobs), Succeeded: int(ok.Load()), Failed: int(failed.Load())}
	p.Log.Info().
		Int("processed", sum.Processed).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("duration_ms", p.Now().Sub(start)).
		Msg("queue batch complete")
	return sum, nil
}

func (p *Processor) process(ctx context.Context, job golf.QueueJob) error {
	log := p.Log.With().Int64("job_id", job.ID).Str("user_id", job.UserID).Int("attempt", job.Attempts+1).Logger()

	initial, rounds, err := p.Store.LoadHistory(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(rounds) == 0 {
		if err := p.Store.ResetHandicap(ctx, job); err != nil {
			return fmt.Errorf("reset handicap: %w", err)
		}
		log.Info().Msg("no approved rounds, handicap set to max")
		return nil
	}

	res, err := recalc.Calculate(initial, rounds)
	if err != nil {
		return fmt.Errorf("recalculate: %w", err)
	}
	if err := p.Store.SaveRecalculation(ctx, job, res); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	log.Info().Int("rounds", len(rounds)).Float64("handicap_index", res.HandicapIndex).Msg("handicap updated")
	return nil
}

func (p *Processor) fail(ctx context.Context, job golf.QueueJob, cause error) {
	attempts := job.Attempts + 1
	status := golf.JobPending
	if attempts >= p.MaxRetries {
		status = golf.JobFailed
	}
	p.Log.Error().Err(cause).Int64("job_id", job.ID).Str("user_id", job.UserID).
		Int("attempts", attempts).Str("status", status).Msg("handicap job failed")
	if err := p.Store.RecordJobFailure(ctx, job, attempts, status, cause.Error()); err != nil {
		p.Log.Error().Err(err).Int64("job_id", job.ID).Msg("record job failure")
	}
}

// Job adapts the processor to scheduler.Job.
type Job struct {
	P       *Processor
	Timeout time.Duration
}

func (j Job) Name() string { return "handicap_queue" }

func (j Job) Run() error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := j.P.RunOnce(ctx)
	return err
}
