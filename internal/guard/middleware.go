package guard

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"linkup/linkup-shell/internal/auth"
	"linkup/linkup-shell/internal/observability"
)

// SessionSource is the read side of the session store.
type SessionSource interface {
	Snapshot() auth.State
}

type identityKey struct{}

// IdentityFromContext returns the user a guarded handler was allowed for.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

type Middleware struct {
	session SessionSource
	routes  Routes
	metrics *observability.Metrics
	log     *zap.Logger
}

func NewMiddleware(session SessionSource, routes Routes, metrics *observability.Metrics, log *zap.Logger) (*Middleware, error) {
	if err := routes.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{session: session, routes: routes, metrics: metrics, log: log}, nil
}

// RequireSession wraps screens that need a logged-in user.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return m.wrap("protected", Protected, next)
}

// RequirePublic wraps screens only anonymous users see.
func (m *Middleware) RequirePublic(next http.Handler) http.Handler {
	return m.wrap("public_only", PublicOnly, next)
}

func (m *Middleware) wrap(kind string, decide func(auth.State) Decision, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := m.session.Snapshot()
		d := decide(st)
		m.metrics.GuardDecision(kind, d.String())

		switch d {
		case Allow:
			ctx := r.Context()
			if st.Identity != nil {
				ctx = WithIdentity(ctx, *st.Identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		case Wait:
			writePlaceholder(w)
		default:
			target, _ := m.routes.Target(d)
			m.log.Debug("guard redirect",
				zap.String("guard", kind),
				zap.String("path", r.URL.Path),
				zap.String("target", target))
			http.Redirect(w, r, target, http.StatusFound)
		}
	})
}

const placeholderHTML = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>LinkUp</title></head>
<body><p class="loading">Loading...</p></body></html>
`

func writePlaceholder(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Retry-After", "1")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(placeholderHTML))
}
