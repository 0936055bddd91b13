// Package metrics defines Prometheus metrics for pools managed by this
// service and adapts them to pool.Instrumentation so a *pool.Pool can
// report straight into them without the core package ever importing
// Prometheus itself.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joao-brasil/go-connection-pool/pkg/pool"
)

var (
	// SessionsTotal tracks the number of live sessions (idle + checked out) per pool.
	SessionsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_sessions_total",
		Help: "Number of live sessions per pool",
	}, []string{"pool"})

	// SessionsIdle tracks the number of idle sessions per pool.
	SessionsIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_sessions_idle",
		Help: "Number of idle sessions per pool",
	}, []string{"pool"})

	// Waiters tracks the number of callers currently waiting for a session.
	Waiters = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pool_waiters",
		Help: "Number of callers waiting for a session",
	}, []string{"pool"})

	// AcquireTotal counts acquire operations by outcome.
	AcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_acquire_total",
		Help: "Total acquire operations",
	}, []string{"pool", "status"})

	// AcquireDuration tracks how long Acquire takes to resolve.
	AcquireDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pool_acquire_duration_seconds",
		Help:    "Acquire resolution time",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"pool", "blocked"})

	// ReleaseTotal counts release operations by whether the session was broken.
	ReleaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_release_total",
		Help: "Total release operations",
	}, []string{"pool", "broken"})
)

// Instrumentation adapts one named pool's lifecycle events to the
// package-level Prometheus collectors, implementing pool.Instrumentation.
type Instrumentation struct {
	Pool string
}

// NewInstrumentation builds an Instrumentation for the named pool and
// pre-registers its label values so dashboards show it immediately,
// mirroring the teacher's pre-registration of per-bucket labels.
func NewInstrumentation(poolName string) *Instrumentation {
	SessionsTotal.WithLabelValues(poolName).Set(0)
	SessionsIdle.WithLabelValues(poolName).Set(0)
	Waiters.WithLabelValues(poolName).Set(0)
	return &Instrumentation{Pool: poolName}
}

var _ pool.Instrumentation = (*Instrumentation)(nil)

func (i *Instrumentation) OnAcquireStart() {}

func (i *Instrumentation) OnAcquireDone(blocked bool, dur time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	AcquireTotal.WithLabelValues(i.Pool, status).Inc()
	AcquireDuration.WithLabelValues(i.Pool, boolLabel(blocked)).Observe(dur.Seconds())
}

func (i *Instrumentation) OnRelease(broken bool) {
	ReleaseTotal.WithLabelValues(i.Pool, boolLabel(broken)).Inc()
}

func (i *Instrumentation) OnGauge(total, idleCount, waiters int) {
	SessionsTotal.WithLabelValues(i.Pool).Set(float64(total))
	SessionsIdle.WithLabelValues(i.Pool).Set(float64(idleCount))
	Waiters.WithLabelValues(i.Pool).Set(float64(waiters))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
