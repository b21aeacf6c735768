package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_submitted_total",
		Help: "The total number of submitted jobs",
	}, []string{"kind"})

	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "work_items_processed_total",
		Help: "The total number of processed work items",
	}, []string{"kind", "status"}) // status: success, skipped, not_found, failed

	Attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "work_item_attempts_total",
		Help: "Attempts of units of work by outcome",
	}, []string{"kind", "outcome"})

	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "work_item_retries_total",
		Help: "Retries scheduled after a retryable failure",
	}, []string{"kind"})

	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "remote_calls_in_flight",
		Help: "Remote calls currently holding a limiter permit",
	})

	ItemDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "work_item_duration_seconds",
		Help:    "Duration of work item processing, retries included.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})
)

// Observer feeds executor events into the package metrics
type Observer struct{}

var _ jobs.Observer = Observer{}

func (Observer) ObserveAttempt(kind jobs.Kind, outcome jobs.OutcomeKind) {
	Attempts.WithLabelValues(string(kind), outcome.String()).Inc()
}

func (Observer) ObserveRetry(kind jobs.Kind, _ time.Duration) {
	Retries.WithLabelValues(string(kind)).Inc()
}

func (Observer) ObserveItem(kind jobs.Kind, status jobs.ItemStatus, elapsed time.Duration) {
	ItemsProcessed.WithLabelValues(string(kind), string(status)).Inc()
	ItemDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (Observer) ObserveInFlight(n int64) {
	InFlight.Set(float64(n))
}

// RecordSubmitted counts a submitted job
func RecordSubmitted(kind jobs.Kind) {
	JobsSubmitted.WithLabelValues(string(kind)).Inc()
}

// Server exposes the default registry on /metrics
type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

// StartMetricsServer runs an HTTP server for Prometheus scrapes in the background
func StartMetricsServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	go func() {
		logger.Info("Metrics server started", slog.String("addr", addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return s
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
