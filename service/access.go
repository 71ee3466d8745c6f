package service

import (
	"strings"

	"github.com/dshuvalov/jumper-challenge/core"
)

// Decision is the outcome of an access check
type Decision int

const (
	Deny Decision = iota
	Allow
)

// DefaultPublicPaths are reachable without a verified wallet
var DefaultPublicPaths = []string{"/auth/nonce", "/auth/verify", "/auth/me", "/health-check"}

// DefaultPublicPrefixes are first path segments whose subtree is public
var DefaultPublicPrefixes = []string{"swagger"}

// AccessPolicy decides whether a request path needs an authenticated session
type AccessPolicy struct {
	paths    map[string]struct{}
	prefixes map[string]struct{}
}

// NewAccessPolicy creates a policy from exact public paths and public first segments
func NewAccessPolicy(paths, prefixes []string) *AccessPolicy {
	p := &AccessPolicy{
		paths:    make(map[string]struct{}, len(paths)),
		prefixes: make(map[string]struct{}, len(prefixes)),
	}
	for _, path := range paths {
		p.paths[path] = struct{}{}
	}
	for _, prefix := range prefixes {
		p.prefixes[strings.Trim(prefix, "/")] = struct{}{}
	}
	return p
}

// Authorize allows public paths and otherwise requires a bound wallet.
// session may be nil.
func (p *AccessPolicy) Authorize(path string, session *core.Session) Decision {
	if _, ok := p.paths[path]; ok {
		return Allow
	}

	// "/swagger/..." is public, "/swagger" and "/swaggerx/..." are not
	if segment, _, found := strings.Cut(strings.TrimPrefix(path, "/"), "/"); found {
		if _, ok := p.prefixes[segment]; ok {
			return Allow
		}
	}

	if session != nil && session.Authenticated() {
		return Allow
	}
	return Deny
}
