package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"linkup/linkup-shell/internal/nav"
	"linkup/linkup-shell/internal/observability"
)

type interceptorFixture struct {
	client   *Client
	metrics  *observability.Metrics
	failures atomic.Int32
	reasons  chan string
}

func newInterceptorFixture(t *testing.T) *interceptorFixture {
	t.Helper()
	f := &interceptorFixture{
		metrics: observability.NewMetrics(),
		reasons: make(chan string, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, "Authentication required", nil)
	})
	mux.HandleFunc("/api/posts/feed", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "", []any{})
	})
	f.client, _ = newTestClient(t, mux, func(cfg *Config) {
		cfg.Metrics = f.metrics
		cfg.OnAuthFailure = func(reason string) {
			f.failures.Add(1)
			f.reasons <- reason
		}
	})
	return f
}

func (f *interceptorFixture) redirects(result string) float64 {
	families, err := f.metrics.Registry.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != "linkup_shell_session_interceptor_redirects_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestInterceptorRedirectsProtectedScreenToLogin(t *testing.T) {
	f := newInterceptorFixture(t)
	navigator := nav.New("/feed")
	ctx := nav.WithNavigator(context.Background(), navigator)

	_, err := f.client.Suggestions(ctx)
	require.True(t, IsUnauthorized(err))

	target, ok := navigator.Target()
	require.True(t, ok)
	require.Equal(t, "/login", target)
	require.EqualValues(t, 1, f.failures.Load())
	require.Equal(t, "GET /api/users/suggestions returned 401", <-f.reasons)
	require.Equal(t, 1.0, f.redirects(RedirectRequested))
}

func TestInterceptorSuppressesStartupProbe(t *testing.T) {
	f := newInterceptorFixture(t)
	navigator := nav.New("/feed")
	ctx := nav.WithIdentityProbe(nav.WithNavigator(context.Background(), navigator))

	_, err := f.client.Profile(ctx)
	require.True(t, IsUnauthorized(err))

	_, ok := navigator.Target()
	require.False(t, ok)
	require.Zero(t, navigator.Requests())
	require.EqualValues(t, 1, f.failures.Load())
	require.Equal(t, 1.0, f.redirects(RedirectSuppressed))
}

func TestInterceptorSuppressesOnPublicScreens(t *testing.T) {
	for _, screen := range []string{"/login", "/register", "/verify-otp"} {
		t.Run(screen, func(t *testing.T) {
			f := newInterceptorFixture(t)
			navigator := nav.New(screen)
			ctx := nav.WithNavigator(context.Background(), navigator)

			err := f.client.Follow(ctx, 4)
			require.True(t, IsUnauthorized(err))

			_, ok := navigator.Target()
			require.False(t, ok)
			require.EqualValues(t, 1, f.failures.Load())
		})
	}
}

func TestInterceptorConcurrentFailuresRedirectOnce(t *testing.T) {
	f := newInterceptorFixture(t)
	navigator := nav.New("/profile")
	ctx := nav.WithNavigator(context.Background(), navigator)

	const calls = 5
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.client.Followers(ctx)
		}()
	}
	wg.Wait()

	target, ok := navigator.Target()
	require.True(t, ok)
	require.Equal(t, "/login", target)
	require.Equal(t, calls, navigator.Requests())
	require.EqualValues(t, calls, f.failures.Load())
	require.Equal(t, 1.0, f.redirects(RedirectRequested))
	require.Equal(t, float64(calls-1), f.redirects(RedirectDuplicate))
}

func TestInterceptorWithoutScreenOnlyClears(t *testing.T) {
	f := newInterceptorFixture(t)

	_, err := f.client.Following(context.Background())
	require.True(t, IsUnauthorized(err))
	require.EqualValues(t, 1, f.failures.Load())
	require.Equal(t, 1.0, f.redirects(RedirectNoScreen))
}

func TestInterceptorIgnoresSuccessfulResponses(t *testing.T) {
	f := newInterceptorFixture(t)
	navigator := nav.New("/feed")

	_, err := f.client.Feed(nav.WithNavigator(context.Background(), navigator))
	require.NoError(t, err)
	require.Zero(t, f.failures.Load())
	require.Zero(t, navigator.Requests())
}
