// Package policy holds the static route-level access table and the pure
// Authorize function. It is the only place role-gating decisions live.
package policy

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Shonkurieta/ebookreader/internal/auth"
)

// DefaultPattern matches every path not covered by another rule.
const DefaultPattern = "*"

// Rule binds a path pattern to a predicate.
//
// Patterns ending in "/*" match the prefix itself and everything below it
// ("/auth/*" matches "/auth", "/auth/" and "/auth/login"). Other patterns
// match exactly.
type Rule struct {
	Pattern   string
	Predicate Predicate
}

// Policy is an immutable, ordered rule table. Safe for concurrent reads.
type Policy struct {
	public   []Rule
	gated    []Rule
	fallback Predicate
}

// DefaultRules is the canonical table for the reader API.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/health", Predicate: Public()},
		{Pattern: "/auth/*", Predicate: Public()},
		{Pattern: "/books/*", Predicate: Public()},
		{Pattern: "/admin/*", Predicate: HasRole(auth.RoleAdmin)},
		{Pattern: "/user/*", Predicate: HasAnyRole(auth.RoleUser, auth.RoleAdmin)},
		{Pattern: DefaultPattern, Predicate: Authenticated()},
	}
}

// Default returns a policy over DefaultRules.
func Default() *Policy {
	p, err := New(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("default access policy is invalid: %v", err))
	}
	return p
}

// New validates rules and builds a policy. Public rules are evaluated before
// every other rule, each group keeping its declared order. A "*" rule
// replaces the any-authenticated default.
func New(rules []Rule) (*Policy, error) {
	p := &Policy{fallback: Authenticated()}
	sawDefault := false

	for i, rule := range rules {
		pattern := strings.TrimSpace(rule.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("rule %d: empty path pattern", i)
		}
		if err := rule.Predicate.validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, pattern, err)
		}

		if pattern == DefaultPattern {
			if sawDefault {
				return nil, fmt.Errorf("rule %d: duplicate %q rule", i, DefaultPattern)
			}
			sawDefault = true
			p.fallback = rule.Predicate.clone()
			continue
		}
		if !strings.HasPrefix(pattern, "/") {
			return nil, fmt.Errorf("rule %d: pattern %q must start with /", i, pattern)
		}

		normalized := Rule{Pattern: pattern, Predicate: rule.Predicate.clone()}
		if normalized.Predicate.Kind == KindPublic {
			p.public = append(p.public, normalized)
		} else {
			p.gated = append(p.gated, normalized)
		}
	}

	if len(p.public) == 0 && len(p.gated) == 0 && !sawDefault {
		return nil, errors.New("access policy has no rules")
	}
	return p, nil
}

// RequiredPredicate is total: every path maps to exactly one predicate.
func (p *Policy) RequiredPredicate(requestPath string) Predicate {
	clean := cleanPath(requestPath)
	for _, rule := range p.public {
		if matches(rule.Pattern, clean) {
			return rule.Predicate.clone()
		}
	}
	for _, rule := range p.gated {
		if matches(rule.Pattern, clean) {
			return rule.Predicate.clone()
		}
	}
	return p.fallback.clone()
}

// IsPublic reports whether the gate may skip token work for requestPath.
func (p *Policy) IsPublic(requestPath string) bool {
	return p.RequiredPredicate(requestPath).Kind == KindPublic
}

// Rules returns the evaluation order, default last.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, 0, len(p.public)+len(p.gated)+1)
	for _, r := range p.public {
		out = append(out, Rule{Pattern: r.Pattern, Predicate: r.Predicate.clone()})
	}
	for _, r := range p.gated {
		out = append(out, Rule{Pattern: r.Pattern, Predicate: r.Predicate.clone()})
	}
	return append(out, Rule{Pattern: DefaultPattern, Predicate: p.fallback.clone()})
}

func matches(pattern, clean string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if prefix == "" {
			return true
		}
		return clean == prefix || strings.HasPrefix(clean, prefix+"/")
	}
	return clean == pattern
}

// cleanPath resolves dot segments so "/books/../admin" is judged as "/admin".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
