package goIAM

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by goIAM APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the IAM engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the IAM engine.
	MetricLoginFailure
	// MetricLoginChangeRequired is an exported constant or variable used by the IAM engine.
	MetricLoginChangeRequired
	// MetricLoginRateLimited is an exported constant or variable used by the IAM engine.
	MetricLoginRateLimited
	// MetricPasswordChangeSuccess is an exported constant or variable used by the IAM engine.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure is an exported constant or variable used by the IAM engine.
	MetricPasswordChangeFailure
	// MetricCodeRequested is an exported constant or variable used by the IAM engine.
	MetricCodeRequested
	// MetricCodeRateLimited is an exported constant or variable used by the IAM engine.
	MetricCodeRateLimited
	// MetricCodeDeliveryFailure is an exported constant or variable used by the IAM engine.
	MetricCodeDeliveryFailure
	// MetricCodeVerifySuccess is an exported constant or variable used by the IAM engine.
	MetricCodeVerifySuccess
	// MetricCodeVerifyFailure is an exported constant or variable used by the IAM engine.
	MetricCodeVerifyFailure
	// MetricCodeLocked is an exported constant or variable used by the IAM engine.
	MetricCodeLocked
	// MetricUserCreated is an exported constant or variable used by the IAM engine.
	MetricUserCreated
	// MetricUserUpdated is an exported constant or variable used by the IAM engine.
	MetricUserUpdated
	// MetricUserDeleted is an exported constant or variable used by the IAM engine.
	MetricUserDeleted
	// MetricWelcomeEmailFailure is an exported constant or variable used by the IAM engine.
	MetricWelcomeEmailFailure
	// MetricTokenValidationFailure is an exported constant or variable used by the IAM engine.
	MetricTokenValidationFailure
	// MetricForbidden is an exported constant or variable used by the IAM engine.
	MetricForbidden
	// MetricAuditDropped is an exported constant or variable used by the IAM engine.
	MetricAuditDropped
	// MetricValidateLatency is an exported constant or variable used by the IAM engine.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by goIAM APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled    bool
	counters   [metricIDCount]paddedCounter
	histograms [metricIDCount]metricHistogram
}

// MetricsSnapshot defines a public type used by goIAM APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add increments id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records a token validation latency sample. Other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || id != MetricValidateLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value describes the value operation and its observable behavior.
//
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	buckets := make([]uint64, histBucketCount)
	for i := 0; i < histBucketCount; i++ {
		buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
	}
	s.Histograms[MetricValidateLatency] = buckets

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
