package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	authmw "github.com/handicappin/handicappin/internal/auth/middleware"
	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/rbac"
)

// POST /rounds  golf.Scorecard
// Players without rounds:unlimited get 402 once they hold freeLimit rounds.
func SubmitRoundHandler(store golf.Store, freeLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := authmw.SubjectFromContext(ctx)

		var sc golf.Scorecard
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validateScorecard(sc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if !rbac.Allowed(ctx, rbac.PermRoundsUnlimited) {
			used, err := store.CountRounds(ctx, userID)
			if err != nil {
				storeError(w, r, err)
				return
			}
			if used >= freeLimit {
				http.Error(w, fmt.Sprintf("free plan limit of %d rounds reached", freeLimit), http.StatusPaymentRequired)
				return
			}
		}

		sc.UserID = userID
		round, err := store.CreateRound(ctx, sc)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, round)
	}
}

// GET /rounds
func ListRoundsHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rounds, err := store.ListRounds(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rounds)
	}
}

// GET /rounds/{roundID}
func GetRoundHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "roundID")
		if !ok {
			http.Error(w, "bad round id", http.StatusBadRequest)
			return
		}
		round, err := store.GetRound(r.Context(), authmw.SubjectFromContext(r.Context()), id)
		if err != nil {
			storeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

// DELETE /rounds/{roundID}
func DeleteRoundHandler(store golf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "roundID")
		if !ok {
			http.Error(w, "bad round id", http.StatusBadRequest)
			return
		}
		if err := store.DeleteRound(r.Context(), authmw.SubjectFromContext(r.Context()), id); err != nil {
			storeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
