package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of an issued access token.
	DefaultTokenTTL = 10 * time.Hour

	// MinSigningKeyLength is the shortest HMAC key accepted (256 bits).
	MinSigningKeyLength = 32
)

// ParsedToken is the decoded, signature-verified content of an access token.
// Expiry has NOT been checked; see Validator.
type ParsedToken struct {
	// ID is the jti claim, used to correlate log events for one token.
	ID string
	// Subject is the identity claim (nickname) at issuance time.
	Subject string
	// PrincipalID is the numeric user id.
	PrincipalID int64
	// Roles is the role set embedded at issuance time.
	Roles []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and parses HS256-signed access tokens. It performs no I/O and
// is safe for concurrent use; the key is copied at construction and never
// mutated afterwards.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithTTL overrides DefaultTokenTTL.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the clock used to stamp iat and exp.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a codec around a server-held symmetric key.
func NewCodec(key []byte, opts ...CodecOption) (*Codec, error) {
	if len(key) < MinSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSigningKeyLength, len(key))
	}

	c := &Codec{
		key: append([]byte(nil), key...),
		ttl: DefaultTokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime applied to issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the given principal. iat is now and exp is now+TTL.
func (c *Codec) Issue(principalID int64, identity string, roles []string) (string, error) {
	if principalID <= 0 {
		return "", fmt.Errorf("issue token: principal id must be positive, got %d", principalID)
	}
	if strings.TrimSpace(identity) == "" {
		return "", errors.New("issue token: identity claim is required")
	}
	authorities := JoinRoles(roles)
	if authorities == "" {
		return "", errors.New("issue token: at least one role is required")
	}

	now := c.now()
	claims := Claims{
		UserID:      principalID,
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and decodes the claim set. Every failure wraps
// ErrMalformedToken. Expired tokens parse successfully so that expiry stays a
// separate, distinguishable check.
func (c *Codec) Parse(tokenString string) (*ParsedToken, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformedToken)
	case claims.UserID <= 0:
		return nil, fmt.Errorf("%w: missing userId claim", ErrMalformedToken)
	case claims.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	case claims.IssuedAt == nil:
		return nil, fmt.Errorf("%w: missing iat claim", ErrMalformedToken)
	}

	roles := SplitRoles(claims.Authorities)
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: missing authorities claim", ErrMalformedToken)
	}

	return &ParsedToken{
		ID:          claims.ID,
		Subject:     claims.Subject,
		PrincipalID: claims.UserID,
		Roles:       roles,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.key, nil
}
