package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/rbac"
)

type ProfileGetter interface {
	GetProfile(ctx context.Context, id string) (golf.Profile, error)
}

// AttachPlanFromDB replaces the role from the token with the one derived from
// the profile row, so plan changes apply without a new login.
func AttachPlanFromDB(store ProfileGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, err := store.GetProfile(ctx, SubjectFromContext(ctx))
			switch {
			case errors.Is(err, golf.ErrNotFound):
				http.Error(w, "unknown user", http.StatusUnauthorized)
				return
			case err != nil:
				http.Error(w, "profile lookup failed", http.StatusInternalServerError)
				return
			}
			role := rbac.EffectiveRole(p.Role, p.Plan, p.SubscriptionStatus)
			next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
		})
	}
}
