package middleware

import (
	"context"
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/policy"
	"github.com/Shonkurieta/ebookreader/internal/services/iam"
)

// PrincipalLookup is the optional role-refresh tier. Implementations must
// bound their own latency and report auth.ErrStoreUnavailable on failure and
// auth.ErrPrincipalMismatch when the principal no longer exists.
type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, principalID int64) (iam.PrincipalRecord, error)
}

// GateDependencies provides the collaborators of the authentication gate.
type GateDependencies struct {
	Policy    *policy.Policy
	Codec     *auth.Codec
	Validator *auth.Validator
	// Lookup is optional. When nil the token's embedded roles are trusted.
	Lookup  PrincipalLookup
	Logger  *logrus.Logger
	Metrics *Metrics
}

// NewAuthenticationGate builds the request stage that attempts
// authentication. It never rejects a request: every path forwards to next,
// and enforcement is left to the authorization stage.
//
// Terminal states:
//   - bypassed_public: the path is public, no token work is done
//   - no_credential: no bearer token in the Authorization header
//   - invalid: the token failed to parse, is expired, or its principal is gone
//   - authenticated: the security context is populated
func NewAuthenticationGate(deps GateDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Policy == nil {
		return nil, errors.New("authentication gate requires an access policy")
	}
	if deps.Codec == nil {
		return nil, errors.New("authentication gate requires a token codec")
	}
	if deps.Validator == nil {
		deps.Validator = auth.NewValidator()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	g := &gate{deps: deps}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// set at most once per request
			if _, ok := auth.SecurityContextFrom(ctx); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, res := g.authenticate(ctx, r)
			g.deps.Metrics.observeGate(res.Outcome)
			g.log(ctx, r, res)

			next.ServeHTTP(w, r.WithContext(withGateResult(ctx, res)))
		})
	}, nil
}

type gate struct {
	deps GateDependencies
}

func (g *gate) authenticate(ctx context.Context, r *http.Request) (context.Context, GateResult) {
	if g.deps.Policy.IsPublic(r.URL.Path) {
		return ctx, GateResult{Outcome: OutcomeBypassedPublic}
	}

	raw, ok := auth.BearerToken(r.Header)
	if !ok {
		return ctx, GateResult{Outcome: OutcomeNoCredential}
	}

	parsed, err := g.deps.Codec.Parse(raw)
	if err != nil {
		return ctx, GateResult{Outcome: OutcomeInvalid, Err: err}
	}
	if err := g.deps.Validator.Check(parsed); err != nil {
		return ctx, GateResult{Outcome: OutcomeInvalid, Err: err}
	}

	sc := auth.SecurityContext{
		PrincipalID:    parsed.PrincipalID,
		Identity:       parsed.Subject,
		Roles:          parsed.Roles,
		TokenID:        parsed.ID,
		RolesFromToken: true,
	}

	if g.deps.Lookup != nil {
		record, err := g.deps.Lookup.LookupPrincipal(ctx, parsed.PrincipalID)
		switch {
		case err == nil:
			if err := g.deps.Validator.CheckFor(parsed, record.ID); err != nil {
				return ctx, GateResult{Outcome: OutcomeInvalid, Err: err}
			}
			if len(record.Roles) > 0 {
				sc.Roles = record.Roles
				sc.RolesFromToken = false
			}
			if record.Identity != "" {
				sc.Identity = record.Identity
			}
		case errors.Is(err, auth.ErrPrincipalMismatch):
			return ctx, GateResult{Outcome: OutcomeInvalid, Err: err}
		default:
			g.deps.Logger.WithFields(g.fields(ctx, r)).
				WithField("principal_id", parsed.PrincipalID).
				WithError(err).
				Warn("role refresh failed, using token roles")
		}
	}

	ctx, _ = auth.WithSecurityContext(ctx, sc)
	return ctx, GateResult{Outcome: OutcomeAuthenticated, RolesFromToken: sc.RolesFromToken}
}

func (g *gate) fields(ctx context.Context, r *http.Request) logrus.Fields {
	return logrus.Fields{
		"event":      "auth.gate",
		"request_id": chimiddleware.GetReqID(ctx),
		"method":     r.Method,
		"path":       r.URL.Path,
	}
}

func (g *gate) log(ctx context.Context, r *http.Request, res GateResult) {
	entry := g.deps.Logger.WithFields(g.fields(ctx, r)).WithField("outcome", string(res.Outcome))

	if sc, ok := auth.SecurityContextFrom(ctx); ok {
		entry = entry.WithFields(logrus.Fields{
			"principal_id": sc.PrincipalID,
			"token_id":     sc.TokenID,
			"roles_source": rolesSource(res.RolesFromToken),
		})
	}

	if res.Outcome == OutcomeInvalid {
		entry.WithField("reason", invalidReason(res.Err)).Info("authentication failed")
		return
	}
	entry.Debug("authentication attempted")
}

func rolesSource(fromToken bool) string {
	if fromToken {
		return "token"
	}
	return "store"
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, auth.ErrPrincipalMismatch):
		return "principal_mismatch"
	default:
		return "malformed_token"
	}
}
