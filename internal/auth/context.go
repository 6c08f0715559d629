package auth

import (
	"context"
	"slices"
)

// SecurityContext records who is calling and with which roles.
// It lives only on the request context; there is no process-wide holder.
type SecurityContext struct {
	// PrincipalID is the numeric user id from the token.
	PrincipalID int64
	// Identity is the nickname carried in the token subject.
	Identity string
	// Roles is the resolved role set: the store's record when the refresh
	// tier answered, otherwise the token's embedded roles.
	Roles []string
	// TokenID is the jti of the token that authenticated the request.
	TokenID string
	// RolesFromToken is true when Roles came from the token fallback.
	RolesFromToken bool
}

// HasRole reports whether role is in the resolved role set.
func (sc SecurityContext) HasRole(role string) bool {
	return slices.Contains(sc.Roles, NormalizeRole(role))
}

// HasAnyRole reports whether at least one of roles is in the resolved set.
func (sc SecurityContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if sc.HasRole(role) {
			return true
		}
	}
	return false
}

type securityContextKey struct{}

// WithSecurityContext stores sc on ctx. The context is set at most once per
// request: when ctx already carries a security context the original ctx is
// returned unchanged together with false.
func WithSecurityContext(ctx context.Context, sc SecurityContext) (context.Context, bool) {
	if _, ok := SecurityContextFrom(ctx); ok {
		return ctx, false
	}
	sc.Roles = slices.Clone(sc.Roles)
	return context.WithValue(ctx, securityContextKey{}, sc), true
}

// SecurityContextFrom returns the request's security context. ok is false for
// anonymous requests.
func SecurityContextFrom(ctx context.Context) (SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(SecurityContext)
	if !ok {
		return SecurityContext{}, false
	}
	sc.Roles = slices.Clone(sc.Roles)
	return sc, true
}
