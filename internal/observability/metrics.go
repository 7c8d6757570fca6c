package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	admissions         *prometheus.CounterVec
	quotaRollbacks     prometheus.Counter
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	aiAttempts         *prometheus.CounterVec
	aiAttemptDuration  *prometheus.HistogramVec
	submissions        *prometheus.CounterVec
	scorePercentage    prometheus.Histogram
	streakUpdates      *prometheus.CounterVec
	guestQuizzesPurged prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_admissions_total",
			Help: "Generation admission decisions by identity and outcome.",
		}, []string{"identity", "outcome"}),
		quotaRollbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "quiz_quota_rollbacks_total",
			Help: "Member reservations released after a downstream failure.",
		}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_generations_total",
			Help: "Quiz generation requests past admission by category and outcome.",
		}, []string{"category", "outcome"}),
		generationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiz_generation_duration_seconds",
			Help:    "End-to-end quiz generation latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"outcome"}),
		aiAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_generation_attempts_total",
			Help: "Calls to the text generator by provider and outcome.",
		}, []string{"provider", "outcome"}),
		aiAttemptDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_generation_attempt_duration_seconds",
			Help:    "Latency of a single text generator call.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Quiz submissions by outcome.",
		}, []string{"outcome"}),
		scorePercentage: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_score_percentage",
			Help:    "Score percentage of completed quizzes.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		streakUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "user_streak_updates_total",
			Help: "Streak updates processed by outcome.",
		}, []string{"outcome"}),
		guestQuizzesPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "guest_quizzes_purged_total",
			Help: "Expired guest quizzes deleted by the cleanup worker.",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveAdmission records an admission decision.
func (m *Metrics) ObserveAdmission(identity, outcome string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(identity, outcome).Inc()
}

// ObserveQuotaRollback records a released member reservation.
func (m *Metrics) ObserveQuotaRollback() {
	if m == nil {
		return
	}
	m.quotaRollbacks.Inc()
}

// ObserveGeneration records the outcome of a generation past admission.
func (m *Metrics) ObserveGeneration(category, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(category, outcome).Inc()
	m.generationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveAttempt records one text generator call.
func (m *Metrics) ObserveAttempt(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.aiAttempts.WithLabelValues(provider, outcome).Inc()
	m.aiAttemptDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveSubmission records a submission and, on success, its score.
func (m *Metrics) ObserveSubmission(outcome string, res *model.SubmitQuizResponse) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if res != nil {
		m.scorePercentage.Observe(float64(res.Percentage))
	}
}

// ObserveStreakUpdate records a processed streak update.
func (m *Metrics) ObserveStreakUpdate(outcome string) {
	if m == nil {
		return
	}
	m.streakUpdates.WithLabelValues(outcome).Inc()
}

// AddGuestQuizzesPurged records quizzes removed by cleanup.
func (m *Metrics) AddGuestQuizzesPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.guestQuizzesPurged.Add(float64(n))
}
