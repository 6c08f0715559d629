package policy

import (
	"net/http"

	"github.com/Shonkurieta/ebookreader/internal/auth"
)

// Reason explains a Deny.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the zero-reason permit.
var Allow = Decision{Allowed: true}

// Deny builds a rejecting decision.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// StatusCode maps the decision to the HTTP status surfaced to callers.
func (d Decision) StatusCode() int {
	switch {
	case d.Allowed:
		return http.StatusOK
	case d.Reason == ReasonForbidden:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "deny_" + string(d.Reason)
}

// Authorize compares a predicate against the request's security context.
// sc is nil for anonymous requests. Pure: no I/O, no logging.
func Authorize(pred Predicate, sc *auth.SecurityContext) Decision {
	switch pred.Kind {
	case KindPublic:
		return Allow
	case KindRoleAny:
		if sc == nil {
			return Deny(ReasonUnauthenticated)
		}
		if !sc.HasAnyRole(pred.Roles...) {
			return Deny(ReasonForbidden)
		}
		return Allow
	default:
		// authenticated, and any kind not recognised, needs an identity
		if sc == nil {
			return Deny(ReasonUnauthenticated)
		}
		return Allow
	}
}
