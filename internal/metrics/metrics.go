// Package metrics exposes compaction outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/huangsam/gitnote/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "gitnote"

// Run outcome label values.
const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusNoop      = "noop"
)

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Recorder owns a registry with the archive collectors.
type Recorder struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	folded      prometheus.Counter
	commits     prometheus.Counter
	lastSuccess prometheus.Gauge
	ready       atomic.Bool
}

// NewRecorder creates a recorder with its own registry, including Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "runs_total",
			Help:      "Compaction runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "duration_seconds",
			Help:      "Wall time of compaction runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		folded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "entries_folded_total",
			Help:      "Entries folded into archive commits.",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "commits_created_total",
			Help:      "Archive commits written.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last published archive.",
		}),
	}
	r.registry.MustRegister(
		r.runs, r.duration, r.folded, r.commits, r.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSuccess records a finished run. Runs that published nothing count as noop.
func (r *Recorder) ObserveSuccess(info *schema.ArchivedInfo) {
	r.duration.Observe(info.Duration.Seconds())
	if !info.Published() {
		r.runs.WithLabelValues(statusNoop).Inc()
		return
	}
	r.runs.WithLabelValues(statusSucceeded).Inc()
	r.folded.Add(float64(info.EntriesFolded))
	r.commits.Add(float64(info.CommitsCreated))
	r.lastSuccess.Set(float64(info.FinishedAt.Unix()))
}

// ObserveFailure records a failed run.
func (r *Recorder) ObserveFailure(elapsed time.Duration) {
	r.duration.Observe(elapsed.Seconds())
	r.runs.WithLabelValues(statusFailed).Inc()
}

// SetReady flips the readiness probe.
func (r *Recorder) SetReady(ready bool) {
	r.ready.Store(ready)
}

// Handler serves /metrics, /healthz and /readyz.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !r.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready\n"))
	})
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("metrics server stopped")
		return nil
	}
}
