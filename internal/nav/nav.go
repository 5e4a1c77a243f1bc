// Package nav carries per-request navigation state between the web shell and
// the backend client: the screen currently being served, a single pending
// redirect, and whether an outgoing call is the startup identity probe.
package nav

import (
	"context"
	"sync"
)

// Navigator belongs to exactly one page request. Only the first redirect
// requested through it is kept.
type Navigator struct {
	location string

	mu       sync.Mutex
	target   string
	requests int
}

func New(location string) *Navigator {
	return &Navigator{location: location}
}

// Location is the screen path the page request was made for.
func (n *Navigator) Location() string {
	if n == nil {
		return ""
	}
	return n.location
}

// Redirect records a redirect to path. It reports whether this call set the
// target; later calls are counted but ignored.
func (n *Navigator) Redirect(path string) bool {
	if n == nil || path == "" {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	if n.target != "" {
		return false
	}
	n.target = path
	return true
}

func (n *Navigator) Target() (string, bool) {
	if n == nil {
		return "", false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, n.target != ""
}

// Requests is the number of Redirect calls made, including ignored ones.
func (n *Navigator) Requests() int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests
}

type navigatorKey struct{}

type probeKey struct{}

func WithNavigator(ctx context.Context, n *Navigator) context.Context {
	return context.WithValue(ctx, navigatorKey{}, n)
}

// FromContext returns the navigator of the page request, or nil when the call
// was not made on behalf of a screen (startup, CLI).
func FromContext(ctx context.Context) *Navigator {
	n, _ := ctx.Value(navigatorKey{}).(*Navigator)
	return n
}

// WithIdentityProbe marks ctx as belonging to the startup "who am I" check.
func WithIdentityProbe(ctx context.Context) context.Context {
	return context.WithValue(ctx, probeKey{}, true)
}

func IsIdentityProbe(ctx context.Context) bool {
	v, _ := ctx.Value(probeKey{}).(bool)
	return v
}
