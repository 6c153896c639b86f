// Command queued drains the handicap recalculation queue on a schedule. Run it
// when the gateway is started with HANDICAP_QUEUE_INLINE=false.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/handicappin/handicappin/internal/config"
	"github.com/handicappin/handicappin/internal/db"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/logger"
	"github.com/handicappin/handicappin/internal/queue"
	"github.com/handicappin/handicappin/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "process a single batch and exit")
	flag.Parse()

	cfg := config.Load()
	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("db driver")
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}
	defer dbh.Close()

	proc := queue.New(golf.NewSQLStore(dbh), l, queue.Options{
		BatchSize:   cfg.QueueBatchSize,
		MaxRetries:  cfg.QueueMaxRetries,
		Concurrency: cfg.QueueConcurrency,
	})

	if *once {
		sum, err := proc.RunOnce(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("queue batch")
		}
		log.Info().Int("processed", sum.Processed).Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).Msg("batch done")
		return
	}

	sched := scheduler.New(l)
	if err := sched.AddJob(cfg.QueueSchedule, queue.Job{P: proc}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.QueueSchedule).Msg("schedule handicap queue")
	}
	sched.Start()
	log.Info().Str("schedule", cfg.QueueSchedule).Str("db", string(driver)).Msg("queue worker started")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sched.Stop()
}
