package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/hdnotes/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	OTPIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notes",
		Name:      "otp_issued_total",
		Help:      "OTP challenges issued, by flow and delivery outcome.",
	}, []string{"flow", "outcome"})

	OTPVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notes",
		Name:      "otp_verifications_total",
		Help:      "OTP verification attempts, by outcome.",
	}, []string{"outcome"})

	OAuthCallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notes",
		Name:      "oauth_callbacks_total",
		Help:      "OAuth callbacks handled, by outcome tag.",
	}, []string{"provider", "outcome"})

	SessionsIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notes",
		Name:      "sessions_issued_total",
		Help:      "Session token pairs minted, by method.",
	}, []string{"method"})

	// Email metrics

	EmailSendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notes",
		Name:      "email_send_duration_seconds",
		Help:      "Latency of outbound email delivery.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"status"})

	// Janitor metrics

	ChallengesPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "notes",
		Name:      "otp_challenges_purged_total",
		Help:      "Expired OTP challenges cleared by the janitor.",
	})

	PurgeCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "notes",
		Name:      "purge_cycle_duration_seconds",
		Help:      "Time taken for one purge cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notes",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notes",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		OTPIssuedTotal,
		OTPVerificationsTotal,
		OAuthCallbacksTotal,
		SessionsIssuedTotal,
		EmailSendDuration,
		ChallengesPurgedTotal,
		PurgeCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus liveness and readiness probes.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, res health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
