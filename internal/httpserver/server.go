// Package httpserver is the web shell: it serves the LinkUp screens as HTML
// on a local listener and drives the backend client on their behalf.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"linkup/linkup-shell/internal/api"
	"linkup/linkup-shell/internal/auth"
	"linkup/linkup-shell/internal/config"
	"linkup/linkup-shell/internal/guard"
	"linkup/linkup-shell/internal/nav"
	"linkup/linkup-shell/internal/observability"
)

// Session is the part of the session store the screens use.
type Session interface {
	Snapshot() auth.State
	Login(ctx context.Context, creds auth.Credentials) (auth.Identity, error)
	Logout(ctx context.Context) error
	UpdateIdentity(id auth.Identity)
}

// Backend is every LinkUp endpoint a screen calls.
type Backend interface {
	Register(ctx context.Context, r api.Registration) (api.AuthResult, error)
	VerifyOTP(ctx context.Context, userID, otp int) (api.AuthResult, error)
	ResendOTP(ctx context.Context, userID int) error

	Profile(ctx context.Context) (auth.Identity, error)
	User(ctx context.Context, userID int) (api.User, error)
	UpdateProfile(ctx context.Context, bio string, image *api.Image) (auth.Identity, error)
	Suggestions(ctx context.Context) ([]api.User, error)
	Follow(ctx context.Context, userID int) error
	Unfollow(ctx context.Context, userID int) error
	Followers(ctx context.Context) ([]api.User, error)
	Following(ctx context.Context) ([]api.User, error)
	UserFollowers(ctx context.Context, userID int) ([]api.User, error)
	UserFollowing(ctx context.Context, userID int) ([]api.User, error)

	Feed(ctx context.Context) ([]api.Post, error)
	Post(ctx context.Context, postID int) (api.Post, error)
	UserPosts(ctx context.Context, userID int) ([]api.Post, error)
	CreatePost(ctx context.Context, caption string, image *api.Image) (api.Post, error)
	UpdatePost(ctx context.Context, postID int, caption string) (api.Post, error)
	DeletePost(ctx context.Context, postID int) error
	Like(ctx context.Context, postID int) (api.Post, error)
	Unlike(ctx context.Context, postID int) (api.Post, error)
	Comments(ctx context.Context, postID int) ([]api.Comment, error)
	AddComment(ctx context.Context, postID int, content string) (api.Comment, error)

	CreatePrimeOrder(ctx context.Context) (api.PrimeOrder, error)
	ActivatePrime(ctx context.Context) error
	PrimeStatus(ctx context.Context) (bool, error)
}

type AuditLogger interface {
	Log(actor, action, target, outcome, detail string) error
}

type Deps struct {
	Session Session
	Backend Backend
	Routes  guard.Routes
	Audit   AuditLogger
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) (*Server, error) {
	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

type handler struct {
	session Session
	backend Backend
	routes  guard.Routes
	audit   AuditLogger
	metrics *observability.Metrics
	log     *zap.Logger
	views   *views

	logins singleflight.Group
}

func NewHandler(deps Deps) (http.Handler, error) {
	if deps.Session == nil || deps.Backend == nil {
		return nil, fmt.Errorf("session and backend are required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	g, err := guard.NewMiddleware(deps.Session, deps.Routes, deps.Metrics, log)
	if err != nil {
		return nil, fmt.Errorf("route guard: %w", err)
	}
	v, err := newViews()
	if err != nil {
		return nil, err
	}
	h := &handler{
		session: deps.Session,
		backend: deps.Backend,
		routes:  deps.Routes,
		audit:   deps.Audit,
		metrics: deps.Metrics,
		log:     log,
		views:   v,
	}

	if err := h.checkRoutes(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if h.session.Snapshot().Resolution != auth.Resolved {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "resolving session"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(sameOriginPosts, navigatorMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(g.RequirePublic)
			h.registerAuthScreens(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(g.RequireSession)
			h.registerProtectedScreens(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, deps.Routes.Landing, http.StatusFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, deps.Routes.Landing, http.StatusFound)
	})
	return r, nil
}

func (h *handler) registerProtectedScreens(r chi.Router) {
	h.registerFeedScreens(r)
	h.registerPostScreens(r)
	h.registerProfileScreens(r)
	h.registerSocialScreens(r)
	h.registerPrimeScreens(r)
	r.Post("/logout", h.logout)
}

// fixedPaths are served regardless of the configured routes.
var fixedPaths = []string{"/healthz", "/readyz", "/metrics", "/register", "/verify-otp", "/verify-otp/resend"}

// checkRoutes makes sure the guards' redirect targets are real screens of the
// right kind: Landing a protected screen, Login free for the login form.
// Anything else ends in NotFound, which sends the user to Landing again.
func (h *handler) checkRoutes() error {
	protected := chi.NewRouter()
	h.registerProtectedScreens(protected)

	if !protected.Match(chi.NewRouteContext(), http.MethodGet, h.routes.Landing) {
		return fmt.Errorf("%w: landing route %q is not a screen for logged-in users", guard.ErrRedirectLoop, h.routes.Landing)
	}
	login := h.routes.Login
	if protected.Match(chi.NewRouteContext(), http.MethodGet, login) || slices.Contains(fixedPaths, login) {
		return fmt.Errorf("login route %q is already taken by another screen", login)
	}
	return nil
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Serve runs the server on an already bound listener.
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// navigatorMiddleware gives every screen request its own navigator and
// forwards the request id to backend calls.
func navigatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := nav.WithNavigator(r.Context(), nav.New(r.URL.Path))
		ctx = api.WithRequestID(ctx, requestIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sameOriginPosts rejects form posts another site's page tries to make
// through the user's browser.
func sameOriginPosts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
				u, err := url.Parse(origin)
				if err != nil || u.Host != r.Host {
					http.Error(w, "cross-origin request refused", http.StatusForbidden)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (h *handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.metrics.ScreenRequest(r.Method, rec.status)
		h.log.Debug("request",
			zap.String("rid", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *handler) auditReq(r *http.Request, actor, action, target, outcome, detail string) {
	if h.audit == nil {
		return
	}
	parts := []string{
		"rid=" + requestIDFromContext(r.Context()),
		"ip=" + clientIP(r),
	}
	if strings.TrimSpace(detail) != "" {
		parts = append(parts, "detail="+strings.TrimSpace(detail))
	}
	if err := h.audit.Log(actor, action, target, outcome, strings.Join(parts, " | ")); err != nil {
		h.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
