package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Shonkurieta/ebookreader/internal/auth"
	"github.com/Shonkurieta/ebookreader/internal/db/models"
	"github.com/Shonkurieta/ebookreader/internal/repository"
)

const (
	DefaultLookupTimeout = 500 * time.Millisecond
	DefaultCacheSize     = 1024
	DefaultCacheTTL      = 30 * time.Second
)

// UserLookup is the slice of the Credential Store the resolver needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// RoleResolver answers "what roles does principal N hold right now".
//
// Every lookup is bounded by a timeout. Store failures and timeouts are
// reported as auth.ErrStoreUnavailable so the gate can fall back to token
// claims; a principal that no longer exists is auth.ErrPrincipalMismatch.
// Only successful lookups are cached.
type RoleResolver struct {
	users   UserLookup
	timeout time.Duration
	cache   *expirable.LRU[int64, PrincipalRecord]
}

// ResolverOption customises a RoleResolver.
type ResolverOption func(*resolverConfig)

type resolverConfig struct {
	timeout   time.Duration
	cacheSize int
	cacheTTL  time.Duration
}

// WithLookupTimeout bounds each store round-trip.
func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(c *resolverConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCache sizes the record cache. size <= 0 disables caching.
func WithCache(size int, ttl time.Duration) ResolverOption {
	return func(c *resolverConfig) {
		c.cacheSize = size
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewRoleResolver builds a resolver over users.
func NewRoleResolver(users UserLookup, opts ...ResolverOption) *RoleResolver {
	cfg := resolverConfig{
		timeout:   DefaultLookupTimeout,
		cacheSize: DefaultCacheSize,
		cacheTTL:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &RoleResolver{users: users, timeout: cfg.timeout}
	if cfg.cacheSize > 0 {
		r.cache = expirable.NewLRU[int64, PrincipalRecord](cfg.cacheSize, nil, cfg.cacheTTL)
	}
	return r
}

// LookupPrincipal returns the stored record for principalID.
func (r *RoleResolver) LookupPrincipal(ctx context.Context, principalID int64) (PrincipalRecord, error) {
	if r.cache != nil {
		if rec, ok := r.cache.Get(principalID); ok {
			return rec.clone(), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		user *models.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := r.users.GetByID(ctx, principalID)
		done <- result{user: user, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return PrincipalRecord{}, fmt.Errorf("%w: lookup principal %d: %v", auth.ErrStoreUnavailable, principalID, ctx.Err())
	}

	switch {
	case errors.Is(res.err, repository.ErrNotFound):
		return PrincipalRecord{}, fmt.Errorf("%w: principal %d no longer exists", auth.ErrPrincipalMismatch, principalID)
	case res.err != nil:
		return PrincipalRecord{}, fmt.Errorf("%w: lookup principal %d: %v", auth.ErrStoreUnavailable, principalID, res.err)
	case res.user == nil:
		return PrincipalRecord{}, fmt.Errorf("%w: lookup principal %d returned no record", auth.ErrStoreUnavailable, principalID)
	}

	rec := recordFromUser(res.user)
	if r.cache != nil {
		r.cache.Add(principalID, rec.clone())
	}
	return rec, nil
}

// Invalidate drops any cached record for principalID.
func (r *RoleResolver) Invalidate(principalID int64) {
	if r == nil || r.cache == nil {
		return
	}
	r.cache.Remove(principalID)
}
