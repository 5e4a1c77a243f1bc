package api

import (
	"net/http"

	"go.uber.org/zap"

	"linkup/linkup-shell/internal/nav"
	"linkup/linkup-shell/internal/observability"
)

// Redirect results recorded by the interceptor.
const (
	RedirectRequested  = "redirected"
	RedirectDuplicate  = "duplicate"
	RedirectSuppressed = "suppressed"
	RedirectNoScreen   = "no_screen"
)

type InterceptorConfig struct {
	LoginPath     string
	PublicPaths   []string
	OnAuthFailure func(reason string)
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// Interceptor watches every backend response for 401. Each one clears the
// session through OnAuthFailure, then asks the page request's navigator to
// go to the login screen unless the request was the startup identity probe
// or the page is already one of the public screens. The response itself is
// always passed through unchanged.
type Interceptor struct {
	next          http.RoundTripper
	loginPath     string
	public        map[string]struct{}
	onAuthFailure func(string)
	metrics       *observability.Metrics
	log           *zap.Logger
}

func NewInterceptor(next http.RoundTripper, cfg InterceptorConfig) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}
	return &Interceptor{
		next:          next,
		loginPath:     cfg.LoginPath,
		public:        public,
		onAuthFailure: cfg.OnAuthFailure,
		metrics:       cfg.Metrics,
		log:           log,
	}
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := i.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	i.handleUnauthorized(req)
	return resp, nil
}

func (i *Interceptor) handleUnauthorized(req *http.Request) {
	ctx := req.Context()
	probe := nav.IsIdentityProbe(ctx)
	kind := "request"
	if probe {
		kind = "probe"
	}
	i.metrics.AuthFailure(kind)

	if i.onAuthFailure != nil {
		i.onAuthFailure(req.Method + " " + req.URL.Path + " returned 401")
	}

	navigator := nav.FromContext(ctx)
	result := i.decide(probe, navigator)
	i.metrics.InterceptorRedirect(result)
	i.log.Debug("backend rejected session",
		zap.String("path", req.URL.Path),
		zap.String("screen", navigator.Location()),
		zap.String("result", result))
}

func (i *Interceptor) decide(probe bool, navigator *nav.Navigator) string {
	if probe {
		return RedirectSuppressed
	}
	if navigator == nil {
		return RedirectNoScreen
	}
	if _, ok := i.public[navigator.Location()]; ok {
		return RedirectSuppressed
	}
	if navigator.Redirect(i.loginPath) {
		return RedirectRequested
	}
	return RedirectDuplicate
}
