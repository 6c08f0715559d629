package auth

import (
	"fmt"
	"time"
)

// Validator decides whether a parsed token is currently usable.
// It is a total function over well-formed input: failures are reported as
// values, never panics.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a validator reading the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorWithClock returns a validator reading the given clock.
func NewValidatorWithClock(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Check reports why a token is unusable, ignoring identity.
// Returns nil, ErrMalformedToken for a nil token, or ErrExpiredToken.
func (v *Validator) Check(token *ParsedToken) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrMalformedToken)
	}
	if !v.now().Before(token.ExpiresAt) {
		return fmt.Errorf("%w: expired at %s", ErrExpiredToken, token.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// CheckFor is Check plus the identity comparison against expectedPrincipalID.
// A mismatch is reported before expiry.
func (v *Validator) CheckFor(token *ParsedToken, expectedPrincipalID int64) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrMalformedToken)
	}
	if token.PrincipalID != expectedPrincipalID {
		return fmt.Errorf("%w: token carries %d, expected %d", ErrPrincipalMismatch, token.PrincipalID, expectedPrincipalID)
	}
	return v.Check(token)
}

// IsUsable is the freshness-only probe: true iff now < exp.
func (v *Validator) IsUsable(token *ParsedToken) bool {
	return v.Check(token) == nil
}

// IsUsableFor is true iff the embedded principal id equals expectedPrincipalID
// and now < exp.
func (v *Validator) IsUsableFor(token *ParsedToken, expectedPrincipalID int64) bool {
	return v.CheckFor(token, expectedPrincipalID) == nil
}
