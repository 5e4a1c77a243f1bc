package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersAndHandler(t *testing.T) {
	m := NewMetrics()

	m.ObserveBackendRequest(http.MethodGet, 401, 20*time.Millisecond)
	m.ObserveBackendRequest(http.MethodGet, 0, time.Millisecond)
	m.AuthFailure("probe")
	m.InterceptorRedirect("redirected")
	m.GuardDecision("protected", "allow")
	m.ScreenRequest(http.MethodGet, 302)
	m.SessionEvent("session.expired", "success")

	require.Equal(t, 1.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("GET", "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("GET", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.authFailures.WithLabelValues("probe")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("protected", "allow")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("session.expired", "success")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "linkup_shell_session_interceptor_redirects_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBackendRequest(http.MethodGet, 200, time.Millisecond)
	m.AuthFailure("x")
	m.InterceptorRedirect("x")
	m.GuardDecision("x", "y")
	m.ScreenRequest(http.MethodGet, 200)
	m.SessionEvent("x", "y")
}

func TestNewLoggerLevels(t *testing.T) {
	log, err := NewLogger("debug")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(-1))

	_, err = NewLogger("chatty")
	require.Error(t, err)
}
