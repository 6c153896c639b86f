package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/handicap"
	"github.com/handicappin/handicappin/internal/rbac"
)

const bcryptCost = 12

type AccountStore interface {
	CreateProfile(ctx context.Context, p golf.Profile) error
	GetProfileByEmail(ctx context.Context, email string) (golf.Profile, error)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Plan        string `json:"plan"`
}

// POST /auth/signup  { "email": "...", "password": "...", "name": "...", "initial_handicap_index": 18.2 }
// Emails listed in adminEmails get the admin role.
func SignupHandler(a *AuthService, store AccountStore, adminEmails []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email        string   `json:"email"`
			Password     string   `json:"password"`
			Name         string   `json:"name"`
			InitialIndex *float64 `json:"initial_handicap_index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			http.Error(w, "invalid email", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 8 {
			http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		initial := handicap.MaxHandicapIndex
		if req.InitialIndex != nil {
			if *req.InitialIndex < -10 || *req.InitialIndex > handicap.MaxHandicapIndex {
				http.Error(w, "initial_handicap_index out of range", http.StatusBadRequest)
				return
			}
			initial = *req.InitialIndex
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		role := golf.RoleUser
		if slices.Contains(adminEmails, email) {
			role = golf.RoleAdmin
		}
		p := golf.Profile{
			ID:                   uuid.NewString(),
			Email:                email,
			Name:                 strings.TrimSpace(req.Name),
			PasswordHash:         string(hash),
			Role:                 role,
			InitialHandicapIndex: initial,
			Plan:                 rbac.PlanFree,
		}
		if err := store.CreateProfile(r.Context(), p); err != nil {
			if errors.Is(err, golf.ErrEmailTaken) {
				http.Error(w, "email already registered", http.StatusConflict)
				return
			}
			http.Error(w, "create profile", http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(p.ID, p.Role, p.Plan)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, UserID: p.ID, Plan: p.Plan})
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(a *AuthService, store AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		p, err := store.GetProfileByEmail(r.Context(), req.Email)
		if err != nil && !errors.Is(err, golf.ErrNotFound) {
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		plan := rbac.EffectiveRole("", p.Plan, p.SubscriptionStatus)
		tok, err := a.IssueJWT(p.ID, p.Role, plan)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: tok, UserID: p.ID, Plan: plan})
	}
}
