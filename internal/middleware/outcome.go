package middleware

import "context"

// Outcome is the terminal state of the authentication gate for one request.
type Outcome string

const (
	OutcomeUnchecked      Outcome = "unchecked"
	OutcomeBypassedPublic Outcome = "bypassed_public"
	OutcomeNoCredential   Outcome = "no_credential"
	OutcomeInvalid        Outcome = "invalid"
	OutcomeAuthenticated  Outcome = "authenticated"
)

// GateResult records what the gate did. Err is set only for OutcomeInvalid.
type GateResult struct {
	Outcome Outcome
	Err     error
	// RolesFromToken is true when the role refresh fell back to token claims.
	RolesFromToken bool
}

type gateResultKey struct{}

func withGateResult(ctx context.Context, res GateResult) context.Context {
	return context.WithValue(ctx, gateResultKey{}, res)
}

// GateResultFrom returns the gate's result for the request, or
// OutcomeUnchecked when the gate did not run.
func GateResultFrom(ctx context.Context) GateResult {
	if res, ok := ctx.Value(gateResultKey{}).(GateResult); ok {
		return res
	}
	return GateResult{Outcome: OutcomeUnchecked}
}
