// Package gate decides whether a navigation target may be entered with the
// current session. It never navigates; callers act on the Decision.
package gate

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/wolfeidau/certifychain/internal/session"
)

// DefaultEntry is the unauthenticated entry surface.
const DefaultEntry = "/login"

// DefaultProtected lists the routes that need a session. "/upload" has no
// command in this CLI; it is gated so any upload surface built on this
// package inherits the rule.
var DefaultProtected = []string{
	"/dashboard",
	"/upload",
	"/certificates",
	"/certificates/**",
	"/leaderboard",
	"/profile",
}

// ErrLoginRequired is returned by Require when the target needs a session.
var ErrLoginRequired = errors.New("login required")

// CanEnter reports whether a protected view may be entered. Only the
// credential is consulted; a missing profile does not block entry.
func CanEnter(s session.Session) bool {
	return s.Authenticated()
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Gate matches navigation targets against protected route patterns.
type Gate struct {
	entry     string
	protected []glob.Glob
}

// New compiles the protected patterns. Patterns use glob syntax with '/'
// as the separator, so "/certificates/*" matches one segment and
// "/certificates/**" any depth.
func New(entry string, protected ...string) (*Gate, error) {
	if entry == "" {
		entry = DefaultEntry
	}

	g := &Gate{entry: entry}
	for _, pattern := range protected {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid protected route %q: %w", pattern, err)
		}
		g.protected = append(g.protected, compiled)
	}

	return g, nil
}

// Default returns a gate for DefaultEntry and DefaultProtected.
func Default() *Gate {
	g, err := New(DefaultEntry, DefaultProtected...)
	if err != nil {
		panic(err) // patterns are constants
	}
	return g
}

// Protected reports whether target matches a protected pattern.
func (g *Gate) Protected(target string) bool {
	for _, pattern := range g.protected {
		if pattern.Match(target) {
			return true
		}
	}
	return false
}

// Decide returns whether target may be entered with s, and where to go
// instead when it may not.
func (g *Gate) Decide(target string, s session.Session) Decision {
	if !g.Protected(target) || CanEnter(s) {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTo: g.entry}
}

// Require is Decide for callers that branch on errors. The returned error
// wraps ErrLoginRequired and names the entry surface.
func (g *Gate) Require(target string, s session.Session) error {
	d := g.Decide(target, s)
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s needs a session, go to %s", ErrLoginRequired, target, d.RedirectTo)
}
