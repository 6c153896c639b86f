package billing

import (
	"time"

	"github.com/handicappin/handicappin/internal/golf"
	"github.com/handicappin/handicappin/internal/rbac"
)

// FeatureAccess is what a profile's plan unlocks right now.
// RemainingRounds is nil when rounds are unlimited.
type FeatureAccess struct {
	Plan               string     `json:"plan"`
	HasAccess          bool       `json:"hasAccess"`
	HasPremiumAccess   bool       `json:"hasPremiumAccess"`
	HasUnlimitedRounds bool       `json:"hasUnlimitedRounds"`
	RemainingRounds    *int       `json:"remainingRounds"`
	Status             string     `json:"status"`
	IsLifetime         bool       `json:"isLifetime"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd"`
}

// Access derives FeatureAccess from the stored billing columns. A paid plan
// whose subscription lapsed is reported as free.
func Access(p golf.Profile, roundsUsed, freeLimit int) FeatureAccess {
	role := rbac.EffectiveRole(p.Role, p.Plan, p.SubscriptionStatus)
	a := FeatureAccess{
		Plan:             role,
		HasAccess:        true,
		Status:           p.SubscriptionStatus,
		CurrentPeriodEnd: p.CurrentPeriodEnd,
	}
	switch role {
	case rbac.RoleAdmin:
		a.Plan = p.Plan
		a.HasPremiumAccess, a.HasUnlimitedRounds = true, true
	case rbac.PlanFree:
		remaining := max(0, freeLimit-roundsUsed)
		a.RemainingRounds = &remaining
		if a.Status == "" {
			a.Status = rbac.PlanFree
		}
		a.CurrentPeriodEnd = nil
	default:
		a.HasPremiumAccess = true
		a.HasUnlimitedRounds = rbac.Has(role, rbac.PermRoundsUnlimited)
		if !a.HasUnlimitedRounds {
			remaining := max(0, freeLimit-roundsUsed)
			a.RemainingRounds = &remaining
		}
		a.IsLifetime = role == rbac.PlanLifetime
	}
	return a
}
