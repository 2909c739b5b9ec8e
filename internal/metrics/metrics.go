package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auth"

// Recorder counts authentication outcomes. A nil *Recorder is a valid no-op.
type Recorder struct {
	registry        *prometheus.Registry
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	replaySuspected prometheus.Counter
	invalidations   *prometheus.CounterVec
	registrations   prometheus.Counter
	verifications   *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh token exchanges by result.",
		}, []string{"result"}),
		replaySuspected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_suspected_total",
			Help:      "Refresh tokens presented with a stale version.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_invalidations_total",
			Help:      "Session invalidations by scope.",
		}, []string{"scope"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Accounts created.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_verifications_total",
			Help:      "Email verification attempts by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		r.logins,
		r.refreshes,
		r.replaySuspected,
		r.invalidations,
		r.registrations,
		r.verifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

func (r *Recorder) Login(success bool) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(result(success)).Inc()
}

func (r *Recorder) Refresh(success bool) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(result(success)).Inc()
}

func (r *Recorder) ReplaySuspected() {
	if r == nil {
		return
	}
	r.replaySuspected.Inc()
}

// Invalidation records a forced invalidation. scope is "all", "access" or "refresh".
func (r *Recorder) Invalidation(scope string) {
	if r == nil {
		return
	}
	r.invalidations.WithLabelValues(scope).Inc()
}

func (r *Recorder) Registration() {
	if r == nil {
		return
	}
	r.registrations.Inc()
}

func (r *Recorder) EmailVerification(success bool) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(result(success)).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
