package auth

import "errors"

// Failure kinds produced by the token codec, the validator and the role
// refresh tier. Callers match them with errors.Is; the gate never lets any
// of them escape the request pipeline.
var (
	// ErrMalformedToken covers bad signatures, corrupt encodings and missing
	// required claims. Surfaced as 401.
	ErrMalformedToken = errors.New("malformed token")

	// ErrExpiredToken means the token verified but its expiry has passed.
	// Kept distinct from ErrMalformedToken so forged and stale tokens can be
	// told apart in logs and metrics. Surfaced as 401.
	ErrExpiredToken = errors.New("token expired")

	// ErrPrincipalMismatch means the embedded principal id does not match the
	// principal the caller expected. Surfaced as 401.
	ErrPrincipalMismatch = errors.New("token principal mismatch")

	// ErrStoreUnavailable means the credential store could not answer a role
	// lookup in time. Recovered locally by falling back to token claims.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
