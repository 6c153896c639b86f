package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	auth "github.com/handicappin/handicappin/internal/auth/middleware"
	"github.com/handicappin/handicappin/internal/billing"
	"github.com/handicappin/handicappin/internal/config"
	"github.com/handicappin/handicappin/internal/db"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/logger"
	"github.com/handicappin/handicappin/internal/mail"
	"github.com/handicappin/handicappin/internal/otp"
	"github.com/handicappin/handicappin/internal/queue"
	"github.com/handicappin/handicappin/internal/ratelimit"
	"github.com/handicappin/handicappin/internal/scheduler"
	"github.com/handicappin/handicappin/internal/storage"
)

const devSecret = "dev-secret-change-me"

func main() {
	cfg := config.Load()
	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(l)

	if cfg.Mode == config.ModeProd && cfg.AuthHMACSecret == devSecret {
		log.Fatal().Msg("AUTH_HMAC_SECRET must be set in prod")
	}
	if cfg.StripeWebhookSecret == "" {
		if cfg.Mode != config.ModeDev {
			log.Fatal().Msg("STRIPE_WEBHOOK_SECRET must be set outside dev")
		}
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set; webhooks will be refused")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
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
	store := golf.NewSQLStore(dbh)

	// --- Blob storage ---
	blobs, err := storage.Open(ctx, storage.Options{
		Driver:    cfg.BlobDriver,
		BasePath:  cfg.BlobBasePath,
		Bucket:    cfg.S3Bucket,
		Prefix:    cfg.S3Prefix,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		URLTTL:    cfg.ExportTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.BlobDriver).Msg("blob store")
	}

	s := &server{
		cfg:     cfg,
		log:     l,
		auth:    auth.NewAuthService(cfg.AuthHMACSecret),
		store:   store,
		billing: billing.NewService(dbh, cfg.StripePriceMap, l),
		codes:   otp.NewService(dbh, newSender(cfg, l), l),
		blobs:   blobs,
		queue: queue.New(store, l, queue.Options{
			BatchSize:   cfg.QueueBatchSize,
			MaxRetries:  cfg.QueueMaxRetries,
			Concurrency: cfg.QueueConcurrency,
		}),
		limits: newLimiters(cfg),
		ready:  dbh.PingContext,
		now:    time.Now,
	}

	sched := scheduler.New(l)
	if cfg.RateLimitEnabled {
		if err := sched.AddJob("@every 1m", ratelimit.Sweeper{Limiters: s.limits.all(), TTL: cfg.RateLimitIdleTTL}); err != nil {
			log.Fatal().Err(err).Msg("schedule limiter sweep")
		}
	}
	if cfg.QueueInline {
		if err := sched.AddJob(cfg.QueueSchedule, queue.Job{P: s.queue}); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.QueueSchedule).Msg("schedule handicap queue")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("mode", string(cfg.Mode)).Str("db", string(driver)).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

// newSender uses SMTP when it is configured. Dev mode falls back to logging
// messages; prod refuses to start without mail.
func newSender(cfg config.Config, l zerolog.Logger) mail.Sender {
	smtp, err := mail.NewSMTP(mail.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})
	if err == nil {
		return smtp
	}
	if cfg.Mode == config.ModeProd {
		log.Fatal().Err(err).Msg("smtp")
	}
	l.Warn().Err(err).Msg("smtp not configured; codes are written to the log")
	return mail.Log{L: l}
}
