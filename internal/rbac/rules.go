package rbac

const (
	PlanFree      = "free"
	PlanPremium   = "premium"
	PlanUnlimited = "unlimited"
	PlanLifetime  = "lifetime"
	RoleAdmin     = "admin"
)

const (
	PermRoundCreate     = "round:create"
	PermRoundView       = "round:view"
	PermRoundDelete     = "round:delete"
	PermCourseView      = "course:view"
	PermCourseCreate    = "course:create"
	PermCourseApprove   = "course:approve"
	PermCalculators     = "calculators:use"
	PermStatsView       = "stats:view"
	PermDashboardView   = "dashboard:view"
	PermRoundsUnlimited = "rounds:unlimited"
	PermQueueAdmin      = "queue:admin"
)

var freePerms = []string{
	PermRoundCreate,
	PermRoundView,
	PermRoundDelete,
	PermCourseView,
	PermCourseCreate,
}

var premiumPerms = with(freePerms, PermCalculators)

var unlimitedPerms = with(premiumPerms, PermStatsView, PermDashboardView, PermRoundsUnlimited)

// RolePermissions maps a plan (or the admin role) to what it unlocks.
var RolePermissions = map[string][]string{
	PlanFree:      freePerms,
	PlanPremium:   premiumPerms,
	PlanUnlimited: unlimitedPerms,
	PlanLifetime:  unlimitedPerms,
	RoleAdmin:     {"*"},
}

func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// EffectiveRole is the role a request is checked against. Admins keep the
// admin role. Paid plans count only while the subscription is in good
// standing; lifetime never lapses.
func EffectiveRole(role, plan, status string) string {
	if role == RoleAdmin {
		return RoleAdmin
	}
	switch plan {
	case PlanLifetime:
		return PlanLifetime
	case PlanPremium, PlanUnlimited:
		if status == "active" || status == "trialing" {
			return plan
		}
		return PlanFree
	default:
		return PlanFree
	}
}
