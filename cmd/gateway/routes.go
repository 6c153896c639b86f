package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	api "github.com/handicappin/handicappin/internal/api/http"
	auth "github.com/handicappin/handicappin/internal/auth/middleware"
	"github.com/handicappin/handicappin/internal/billing"
	"github.com/handicappin/handicappin/internal/config"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/logger"
	"github.com/handicappin/handicappin/internal/otp"
	"github.com/handicappin/handicappin/internal/queue"
	"github.com/handicappin/handicappin/internal/ratelimit"
	"github.com/handicappin/handicappin/internal/rbac"
	"github.com/handicappin/handicappin/internal/storage"
)

type limiters struct {
	api, auth, otp *ratelimit.Limiter
}

func newLimiters(cfg config.Config) limiters {
	if !cfg.RateLimitEnabled {
		return limiters{}
	}
	return limiters{
		api:  ratelimit.New("api", cfg.RateLimitAPIPerMin, time.Minute),
		auth: ratelimit.New("auth", cfg.RateLimitAuthPerMin, time.Minute),
		otp:  ratelimit.New("otp", cfg.RateLimitOTPPerHour, time.Hour),
	}
}

func (l limiters) all() []*ratelimit.Limiter { return []*ratelimit.Limiter{l.api, l.auth, l.otp} }

type server struct {
	cfg     config.Config
	log     zerolog.Logger
	auth    *auth.AuthService
	store   golf.Store
	billing *billing.Service
	codes   *otp.Service
	blobs   storage.BlobStore
	queue   *queue.Processor
	limits  limiters
	ready   func(ctx context.Context) error
	now     func() time.Time
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Requests(s.log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ready(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(ratelimit.Middleware(s.limits.auth, ratelimit.ByIP))
		ar.Post("/auth/signup", auth.SignupHandler(s.auth, s.store, s.cfg.AdminEmails))
		ar.Post("/auth/login", auth.LoginHandler(s.auth, s.store))
	})

	r.Post("/billing/webhook", billing.WebhookHandler(s.billing, s.cfg.StripeWebhookSecret))

	// Anonymous calculators, limited per client address.
	r.With(ratelimit.Middleware(s.limits.api, ratelimit.ByIP)).Route("/calculators", api.MountCalculators)

	// Protected API (JWT → plan from DB → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(s.auth), auth.AttachPlanFromDB(s.store))
		pr.Use(ratelimit.Middleware(s.limits.api, ratelimit.ByUser(auth.SubjectFromContext)))

		pr.With(rbac.Require(rbac.PermCalculators)).Route("/pro/calculators", api.MountCalculators)

		pr.With(rbac.Require(rbac.PermCourseView)).Get("/courses", api.ListCoursesHandler(s.store))
		pr.With(rbac.Require(rbac.PermCourseCreate)).Post("/courses", api.CreateCourseHandler(s.store))
		pr.With(rbac.Require(rbac.PermCourseView)).Get("/courses/{courseID}", api.GetCourseHandler(s.store))
		pr.With(rbac.Require(rbac.PermCourseView)).Get("/courses/{courseID}/tees", api.ListTeesHandler(s.store))
		pr.With(rbac.Require(rbac.PermCourseCreate)).Post("/courses/{courseID}/tees", api.CreateTeeHandler(s.store))
		pr.With(rbac.Require(rbac.PermCourseView)).Get("/tees/{teeID}", api.GetTeeHandler(s.store))

		pr.With(rbac.Require(rbac.PermRoundCreate)).Post("/rounds", api.SubmitRoundHandler(s.store, s.cfg.FreeTierRoundLimit))
		pr.With(rbac.Require(rbac.PermRoundView)).Get("/rounds", api.ListRoundsHandler(s.store))
		pr.With(rbac.Require(rbac.PermRoundView)).Get("/rounds/{roundID}", api.GetRoundHandler(s.store))
		pr.With(rbac.Require(rbac.PermRoundDelete)).Delete("/rounds/{roundID}", api.DeleteRoundHandler(s.store))

		pr.Get("/profile", api.ProfileHandler(s.store))
		pr.Get("/billing/access", api.AccessHandler(s.store, s.cfg.FreeTierRoundLimit))
		pr.With(rbac.Require(rbac.PermStatsView)).Get("/stats", api.StatsHandler(s.store, s.now))
		pr.With(rbac.Require(rbac.PermDashboardView)).Get("/dashboard", api.DashboardHandler(s.store))

		s.mountAccountRoutes(pr)
		s.mountAdminRoutes(pr)
	})
	return r
}

// mountAccountRoutes wires password, email change, deletion and export.
// Requests that send mail share the OTP limiter.
func (s *server) mountAccountRoutes(pr chi.Router) {
	mailing := ratelimit.Middleware(s.limits.otp, ratelimit.ByUser(auth.SubjectFromContext))
	pr.Route("/account", func(r chi.Router) {
		r.Put("/password", api.ChangePasswordHandler(s.store))

		r.With(mailing).Post("/email-change", api.RequestEmailChangeHandler(s.store, s.codes))
		r.Get("/email-change", api.PendingEmailChangeHandler(s.codes))
		r.Post("/email-change/verify", api.VerifyEmailChangeHandler(s.store, s.codes))
		r.Delete("/email-change", api.CancelEmailChangeHandler(s.codes))

		r.With(mailing).Post("/delete", api.RequestDeletionHandler(s.store, s.codes))
		r.Post("/delete/verify", api.VerifyDeletionHandler(s.store, s.codes, s.blobs, s.now))
		r.Get("/export", api.ExportHandler(s.store, s.blobs, s.now))
	})
}

// mountAdminRoutes wires course moderation and queue operations under /admin.
func (s *server) mountAdminRoutes(pr chi.Router) {
	pr.Route("/admin", func(r chi.Router) {
		r.With(rbac.Require(rbac.PermCourseApprove)).Post("/courses/{courseID}/approve", api.ApproveCourseHandler(s.store))
		r.With(rbac.Require(rbac.PermQueueAdmin)).Post("/users/{userID}/recalculate", api.RecalculateUserHandler(s.store))
		r.With(rbac.Require(rbac.PermQueueAdmin)).Post("/queue/retry", api.RetryFailedJobsHandler(s.store))
		r.With(rbac.Require(rbac.PermQueueAdmin)).Post("/queue/run", api.RunQueueHandler(s.queue))
	})
}
