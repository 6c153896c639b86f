package http

import (
	"net/http"
	"time"

	authmw "github.com/handicappin/handicappin/internal/auth/middleware"
	"github.com/handicappin/handicappin/internal/billing"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/stats"
)

// GET /profile
func ProfileHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.GetProfile(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// GET /billing/access
func AccessHandler(store golf.Store, freeLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		used, err := store.CountRounds(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, billing.Access(p, used, freeLimit))
	}
}

// GET /stats?range=6months|1year|all
func StatsHandler(store golf.Store, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, err := stats.SinceFor(r.URL.Query().Get("range"), now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		rounds, err := store.ListRounds(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats.Compute(stats.FilterByTimeRange(rounds, since), p.HandicapIndex))
	}
}

type dashboard struct {
	Profile      golf.Profile   `json:"profile"`
	Overview     stats.Overview `json:"overview"`
	RecentRounds []golf.Round   `json:"recent_rounds"`
}

// GET /dashboard  profile, all-time overview and the five latest rounds
func DashboardHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)
		p, err := store.GetProfile(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		rounds, err := store.ListRounds(ctx, userID)
		if err != nil {
			storeError(w, r, err)
			return
		}
		recent := rounds[:min(5, len(rounds))]
		for i := range recent {
			recent[i].Scores = nil
		}
		writeJSON(w, http.StatusOK, dashboard{
			Profile:      p,
			Overview:     stats.OverviewOf(rounds, p.HandicapIndex),
			RecentRounds: recent,
		})
	}
}
