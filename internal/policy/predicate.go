package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Shonkurieta/ebookreader/internal/auth"
)

// Kind names a predicate family as it appears in policy files.
type Kind string

const (
	KindPublic        Kind = "public"
	KindAuthenticated Kind = "authenticated"
	KindRoleAny       Kind = "role-any"
)

// Predicate is the requirement a path places on the caller.
type Predicate struct {
	Kind  Kind
	Roles []string
}

// Public requires nothing.
func Public() Predicate {
	return Predicate{Kind: KindPublic}
}

// Authenticated requires any valid identity.
func Authenticated() Predicate {
	return Predicate{Kind: KindAuthenticated}
}

// HasRole requires the single role r.
func HasRole(r string) Predicate {
	return HasAnyRole(r)
}

// HasAnyRole requires at least one of roles.
func HasAnyRole(roles ...string) Predicate {
	return Predicate{Kind: KindRoleAny, Roles: auth.SplitRoles(strings.Join(roles, ","))}
}

func (p Predicate) String() string {
	if p.Kind == KindRoleAny {
		return fmt.Sprintf("%s(%s)", p.Kind, strings.Join(p.Roles, ", "))
	}
	return string(p.Kind)
}

func (p Predicate) validate() error {
	switch p.Kind {
	case KindPublic, KindAuthenticated:
		if len(p.Roles) > 0 {
			return fmt.Errorf("predicate %q does not take roles", p.Kind)
		}
		return nil
	case KindRoleAny:
		if len(p.Roles) == 0 {
			return fmt.Errorf("predicate %q requires at least one role", p.Kind)
		}
		for _, role := range p.Roles {
			if !auth.IsKnownRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown predicate kind %q", p.Kind)
	}
}

func (p Predicate) clone() Predicate {
	return Predicate{Kind: p.Kind, Roles: slices.Clone(p.Roles)}
}
