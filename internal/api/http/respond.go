// Package http holds the JSON handlers. Routes are mounted in cmd/gateway.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/handicap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// idParam reads a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// storeError maps store and calculation errors onto status codes. Anything
// unrecognised is logged and reported as a 500 without detail.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	var calc *handicap.CalculationError
	switch {
	case errors.Is(err, golf.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, golf.ErrEmailTaken):
		http.Error(w, "email already registered", http.StatusConflict)
	case errors.Is(err, errInvalid), errors.Is(err, golf.ErrInvalidScorecard), errors.Is(err, golf.ErrInvalidTee):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &calc):
		http.Error(w, calc.Error(), http.StatusUnprocessableEntity)
	default:
		log.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
