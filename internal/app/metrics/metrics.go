// Package metrics exposes Prometheus instrumentation for the platform. A
// private registry keeps the scrape surface limited to what this process
// registers explicitly.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the platform registers.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	DepositsSubmitted      prometheus.Counter
	DepositsApproved       prometheus.Counter
	DepositsRejected       prometheus.Counter
	DepositsCompleted      prometheus.Counter
	ContributionsSubmitted prometheus.Counter
	ContributionsApproved  prometheus.Counter
	ContributionsRejected  prometheus.Counter
	WalletsActivated       prometheus.Counter
	RedemptionsRequested   prometheus.Counter
	RedemptionsApproved    prometheus.Counter
	ConfirmationPolls      prometheus.Counter
}

// New builds and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regenfi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regenfi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		DepositsSubmitted:      newCounter("deposits_submitted_total", "Bank deposit requests submitted."),
		DepositsApproved:       newCounter("deposits_approved_total", "Bank deposit requests approved."),
		DepositsRejected:       newCounter("deposits_rejected_total", "Bank deposit requests rejected."),
		DepositsCompleted:      newCounter("deposits_completed_total", "Bank deposit requests completed on-chain."),
		ContributionsSubmitted: newCounter("contributions_submitted_total", "LP contribution requests submitted."),
		ContributionsApproved:  newCounter("contributions_approved_total", "LP contribution requests approved."),
		ContributionsRejected:  newCounter("contributions_rejected_total", "LP contribution requests rejected."),
		WalletsActivated:       newCounter("wallets_activated_total", "Wallets activated and gas funded."),
		RedemptionsRequested:   newCounter("redemptions_requested_total", "Token redemption requests submitted."),
		RedemptionsApproved:    newCounter("redemptions_approved_total", "Token redemption requests approved."),
		ConfirmationPolls:      newCounter("confirmation_polls_total", "Confirmation poller passes executed."),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.DepositsSubmitted,
		m.DepositsApproved,
		m.DepositsRejected,
		m.DepositsCompleted,
		m.ContributionsSubmitted,
		m.ContributionsApproved,
		m.ContributionsRejected,
		m.WalletsActivated,
		m.RedemptionsRequested,
		m.RedemptionsApproved,
		m.ConfirmationPolls,
	)
	return m
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "regenfi",
		Name:      name,
		Help:      help,
	})
}

// Handler serves the scrape endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an http.Handler with request counting and latency
// observation. Paths are canonicalized so per-resource IDs do not explode
// label cardinality.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses identifier segments to a placeholder. Identifiers
// are UUIDs or reference codes; fixed route words stay as-is.
func canonicalPath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		if looksLikeID(s) {
			segs[i] = ":id"
		}
	}
	return "/" + strings.Join(segs, "/")
}

func looksLikeID(s string) bool {
	if len(s) < 10 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return strings.ContainsAny(s, "0123456789")
}
