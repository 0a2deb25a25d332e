package kvlock

import (
	"strconv"
	"time"

	"github.com/demdxx/gocast"
	"github.com/rs/zerolog"

	"github.com/trafficstars/kvlock/metrics"
)

const (
	// DefaultExpiration of a held lock
	DefaultExpiration = time.Second

	// DefaultTimeout of the acquisition loop
	DefaultTimeout = 5 * time.Second

	// PollInterval between acquisition attempts
	PollInterval = 100 * time.Millisecond
)

// Options of a single lock acquisition
type Options struct {
	// Expiration is how long the lock stays valid after it was taken.
	// Zero or negative values fall back to DefaultExpiration.
	Expiration time.Duration

	// Timeout limits the time spent waiting for the lock.
	// Zero or negative values fall back to DefaultTimeout.
	Timeout time.Duration
}

// Option modifies Options
type Option func(*Options)

// WithExpiration sets the lock expiration
func WithExpiration(d time.Duration) Option {
	return func(o *Options) { o.Expiration = d }
}

// WithTimeout sets the acquisition timeout
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// Manager implements Locker on top of a Store. The stored value of a lock
// is its absolute expiration time in seconds since the epoch; an expired
// value may be reclaimed by any contender with an atomic swap.
type Manager struct {
	store    Store
	logger   *zerolog.Logger
	defaults Options
}

// New returns a lock manager for the store. The options become the defaults
// of every AcquireAndRun call.
func New(store Store, logger *zerolog.Logger, opts ...Option) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	m := &Manager{store: store, logger: logger}
	for _, opt := range opts {
		opt(&m.defaults)
	}
	return m
}

// AcquireAndRun takes the named lock, runs fn exactly once and releases the lock
// if it has not expired yet. fn is not called if the lock could not be taken.
func (m *Manager) AcquireAndRun(name string, fn func() error, opts ...Option) (err error) {
	o := m.options(opts)
	expiration, err := m.acquire(name, o)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := m.release(name, expiration); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn()
}

func (m *Manager) options(opts []Option) Options {
	o := m.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.Expiration <= 0 {
		o.Expiration = DefaultExpiration
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func (m *Manager) acquire(name string, o Options) (float64, error) {
	start := time.Now()
	deadline := start.Add(o.Timeout)
	for time.Now().Before(deadline) {
		expiration := expiresAt(o.Expiration)
		ok, err := m.store.SetIfAbsent(name, formatTimestamp(expiration))
		if err != nil {
			return 0, m.failed(start, err)
		}
		if ok {
			m.acquired(name, start, metrics.ResultAcquired)
			return expiration, nil
		}

		current, err := m.store.Get(name)
		if err != nil {
			return 0, m.failed(start, err)
		}
		if parseTimestamp(current) < epoch(time.Now()) {
			expiration = expiresAt(o.Expiration)
			previous, err := m.store.GetAndSet(name, formatTimestamp(expiration))
			if err != nil {
				return 0, m.failed(start, err)
			}
			// Another contender could swap between our Get and GetAndSet
			if parseTimestamp(previous) < epoch(time.Now()) {
				m.acquired(name, start, metrics.ResultReclaimed)
				return expiration, nil
			}
			m.logger.Debug().Str("lock", name).Msg("stale lock reclaimed by another contender")
		}

		time.Sleep(PollInterval)
	}

	metrics.AcquireTotal.WithLabelValues(metrics.ResultTimeout).Inc()
	metrics.AcquireWait.Observe(time.Since(start).Seconds())
	m.logger.Debug().Str("lock", name).Dur("timeout", o.Timeout).Msg("lock timeout")
	return 0, &LockTimeoutError{Name: name, Timeout: o.Timeout}
}

func (m *Manager) failed(start time.Time, err error) error {
	metrics.AcquireTotal.WithLabelValues(metrics.ResultError).Inc()
	metrics.AcquireWait.Observe(time.Since(start).Seconds())
	return err
}

func (m *Manager) acquired(name string, start time.Time, result string) {
	wait := time.Since(start)
	metrics.AcquireTotal.WithLabelValues(result).Inc()
	metrics.AcquireWait.Observe(wait.Seconds())
	m.logger.Debug().Str("lock", name).Str("result", result).Dur("wait", wait).Msg("lock acquired")
}

// release deletes the lock only while our own expiration is in the future,
// otherwise the key may already belong to another holder.
func (m *Manager) release(name string, expiration float64) error {
	if expiration <= epoch(time.Now()) {
		metrics.ReleaseTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		m.logger.Debug().Str("lock", name).Msg("lock expired before release, delete skipped")
		return nil
	}
	if err := m.store.Delete(name); err != nil {
		metrics.ReleaseTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	metrics.ReleaseTotal.WithLabelValues(metrics.ResultDeleted).Inc()
	return nil
}

func expiresAt(d time.Duration) float64 {
	if d <= 0 {
		d = DefaultExpiration
	}
	return epoch(time.Now().Add(d))
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func formatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 6, 64)
}

// parseTimestamp returns 0 for missing or malformed values
func parseTimestamp(s string) float64 {
	return gocast.ToFloat64(s)
}
