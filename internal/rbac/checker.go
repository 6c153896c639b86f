package rbac

import (
	"context"
	"slices"
	"strings"
)

// grants is one role's permission list split into exact names and
// "prefix:*" patterns.
type grants struct {
	all      bool
	exact    map[string]bool
	prefixes []string
}

// Checker answers permission questions against a role → permissions table.
// Tables are compiled once at construction.
type Checker struct {
	roles map[string]grants
}

// NewChecker compiles table. A nil table means the built-in plan table.
func NewChecker(table map[string][]string) *Checker {
	if table == nil {
		table = RolePermissions
	}
	c := &Checker{roles: make(map[string]grants, len(table))}
	for role, perms := range table {
		g := grants{exact: map[string]bool{}}
		for _, p := range perms {
			switch {
			case p == "*":
				g.all = true
			case strings.HasSuffix(p, "*"):
				g.prefixes = append(g.prefixes, strings.TrimSuffix(p, "*"))
			default:
				g.exact[p] = true
			}
		}
		c.roles[role] = g
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	g, ok := c.roles[role]
	if !ok {
		return false
	}
	if g.all || g.exact[perm] {
		return true
	}
	return slices.ContainsFunc(g.prefixes, func(p string) bool { return strings.HasPrefix(perm, p) })
}

// Any reports whether role holds at least one of perms.
func (c *Checker) Any(role string, perms ...string) bool {
	return slices.ContainsFunc(perms, func(p string) bool { return c.Has(role, p) })
}

// All reports whether role holds every one of perms.
func (c *Checker) All(role string, perms ...string) bool {
	return !slices.ContainsFunc(perms, func(p string) bool { return !c.Has(role, p) })
}

// Has checks role against the built-in plan table.
func Has(role, perm string) bool { return defaultChecker.Has(role, perm) }

// Allowed reports whether the role in ctx grants perm. Requests without a
// role are denied everything.
func Allowed(ctx context.Context, perm string) bool {
	role := RoleFromContext(ctx)
	return role != "" && defaultChecker.Has(role, perm)
}

type roleKey struct{}

// WithRole stores the effective role (a plan name or admin) for the request.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
