// Package metrics holds the prometheus collectors updated by the lock manager
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Acquire results
const (
	ResultAcquired  = "acquired"
	ResultReclaimed = "reclaimed"
	ResultTimeout   = "timeout"
	ResultError     = "error"
)

// Release results
const (
	ResultDeleted = "deleted"
	ResultSkipped = "skipped"
)

var (
	// AcquireTotal counts finished acquisition attempts by result.
	AcquireTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvlock_acquire_total",
		Help: "Total lock acquisitions by result",
	}, []string{"result"})
	// ReleaseTotal counts release attempts by result.
	ReleaseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvlock_release_total",
		Help: "Total lock releases by result",
	}, []string{"result"})
	// AcquireWait observes the time spent waiting for a lock.
	AcquireWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvlock_acquire_wait_seconds",
		Help:    "Time spent waiting for a lock",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
	})
)

// Register registers the lock collectors on reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(AcquireTotal, ReleaseTotal, AcquireWait)
}
