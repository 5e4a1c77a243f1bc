package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"linkup/linkup-shell/internal/observability"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// WithRequestID makes backend calls made with ctx reuse id as their request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func newRateLimitTransport(next http.RoundTripper, rps float64, burst int) *rateLimitTransport {
	if burst < 1 {
		burst = 1
	}
	return &rateLimitTransport{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// requestIDTransport tags outgoing requests so backend logs can be matched
// with ours. An id already present on the request is kept.
type requestIDTransport struct {
	next http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(requestIDHeader) == "" {
		id := RequestIDFromContext(req.Context())
		if id == "" {
			id = uuid.NewString()
		}
		req = req.Clone(req.Context())
		req.Header.Set(requestIDHeader, id)
	}
	return t.next.RoundTrip(req)
}

type metricsTransport struct {
	next    http.RoundTripper
	metrics *observability.Metrics
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	status := 0
	if err == nil {
		status = resp.StatusCode
	}
	t.metrics.ObserveBackendRequest(req.Method, status, time.Since(start))
	return resp, err
}
