package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "epochlik"

// Metrics holds the collectors shared by every chain of a process.
type Metrics struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	branches    *prometheus.CounterVec
	direct      *prometheus.CounterVec
	operations  *prometheus.CounterVec
	rescales    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	logL        *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of likelihood evaluations.",
		}, []string{"chain"}),
		branches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputed_branches_total",
			Help:      "Branch transition matrices recomputed.",
		}, []string{"chain"}),
		direct: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "direct_matrices_total",
			Help:      "Transition matrices composed on the host instead of the engine.",
		}, []string{"chain"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_operations_total",
			Help:      "Partial likelihood updates submitted to the engine.",
		}, []string{"chain"}),
		rescales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "underflows_total",
			Help:      "Non-finite likelihoods, labelled by whether a rescaled retry followed.",
		}, []string{"chain", "scheme", "retry"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of likelihood evaluations.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"chain"}),
		logL: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_likelihood",
			Help:      "Most recent log-likelihood.",
		}, []string{"chain"}),
	}
	m.registry.MustRegister(m.evaluations, m.branches, m.direct, m.operations, m.rescales, m.duration, m.logL)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns evaluation hooks recording into the series of chain.
func (m *Metrics) Hooks(chain string) domain.EvaluationHooks {
	return domain.EvaluationHooks{
		OnEvaluate: func(_ context.Context, e *domain.EvaluationEvent) {
			m.evaluations.WithLabelValues(chain).Inc()
			m.branches.WithLabelValues(chain).Add(float64(e.RecomputedBranches))
			m.direct.WithLabelValues(chain).Add(float64(e.DirectMatrices))
			m.operations.WithLabelValues(chain).Add(float64(e.Operations))
			m.duration.WithLabelValues(chain).Observe(e.Duration.Seconds())
			m.logL.WithLabelValues(chain).Set(e.LogLikelihood)
		},
		OnRescale: func(_ context.Context, e *domain.RescaleEvent) {
			m.rescales.WithLabelValues(chain, string(e.Scheme), strconv.FormatBool(e.Retry)).Inc()
		},
	}
}

// Handler serves the metrics at /metrics and a liveness probe at /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Combine fans every event out to each hook set.
func Combine(sets ...domain.EvaluationHooks) domain.EvaluationHooks {
	return domain.EvaluationHooks{
		OnEvaluate: func(ctx context.Context, e *domain.EvaluationEvent) {
			for _, s := range sets {
				if s.OnEvaluate != nil {
					s.OnEvaluate(ctx, e)
				}
			}
		},
		OnRescale: func(ctx context.Context, e *domain.RescaleEvent) {
			for _, s := range sets {
				if s.OnRescale != nil {
					s.OnRescale(ctx, e)
				}
			}
		},
	}
}
