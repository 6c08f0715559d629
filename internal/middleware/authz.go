package middleware

import (
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/policy"
)

// AuthzDependencies provides the collaborators of the enforcement stage.
type AuthzDependencies struct {
	Policy  *policy.Policy
	Logger  *logrus.Logger
	Metrics *Metrics
}

// NewAuthzMiddleware enforces the access policy after the gate has run.
// It is the only stage that rejects: 401 when identity is required and
// missing, 403 when the role set does not satisfy the rule.
func NewAuthzMiddleware(deps AuthzDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Policy == nil {
		return nil, errors.New("authz middleware requires an access policy")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			pred := deps.Policy.RequiredPredicate(r.URL.Path)

			var scPtr *auth.SecurityContext
			if sc, ok := auth.SecurityContextFrom(ctx); ok {
				scPtr = &sc
			}

			decision := policy.Authorize(pred, scPtr)
			deps.Metrics.observeDecision(decision.String())

			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			fields := logrus.Fields{
				"event":      "auth.policy",
				"request_id": chimiddleware.GetReqID(ctx),
				"method":     r.Method,
				"path":       r.URL.Path,
				"outcome":    decision.String(),
				"reason":     string(decision.Reason),
				"required":   pred.String(),
				"gate":       string(GateResultFrom(ctx).Outcome),
			}
			if scPtr != nil {
				fields["principal_id"] = scPtr.PrincipalID
			}
			deps.Logger.WithFields(fields).Info("request denied")

			msg := "Authentication required"
			if decision.Reason == policy.ReasonForbidden {
				msg = "Access denied"
			}
			WriteError(w, decision.StatusCode(), msg)
		})
	}, nil
}
