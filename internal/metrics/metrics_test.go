package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := New()
	r.Login(true)
	r.Login(false)
	r.Login(false)
	r.Refresh(true)
	r.ReplaySuspected()
	r.Invalidation("all")
	r.Registration()
	r.EmailVerification(true)

	require.Equal(t, 1.0, testutil.ToFloat64(r.logins.WithLabelValues("success")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.logins.WithLabelValues("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.replaySuspected))
	require.Equal(t, 1.0, testutil.ToFloat64(r.invalidations.WithLabelValues("all")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.registrations))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "auth_logins_total")
	require.Contains(t, rec.Body.String(), "auth_replay_suspected_total 1")
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	require.NotPanics(t, func() {
		r.Login(true)
		r.Refresh(false)
		r.ReplaySuspected()
		r.Invalidation("access")
		r.Registration()
		r.EmailVerification(false)
	})
}
