package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MountMetrics provides observability for the mount configuration services.
//
// This interface is optional - services given nil use NewNoopMountMetrics.
type MountMetrics interface {
	// RecordOperation records a completed service operation.
	//
	// Parameters:
	//   - scope: "global" or "user"
	//   - operation: Operation name (e.g., "Get", "Add", "Update")
	//   - duration: Time taken to complete the operation
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(scope, operation string, duration time.Duration, err error)

	// RecordNotification records one emitted mount-changed notification.
	RecordNotification(signal, mountType string)

	// RecordMalformedRecord records a stored table leaf skipped while decoding.
	RecordMalformedRecord(scope string)

	// SetMountCount reports the number of live configs in a scope after a
	// read or write.
	SetMountCount(scope string, count int)

	// RecordProbe records a backend status check and its resulting status.
	RecordProbe(backendClass, status string, duration time.Duration)

	// RecordStoreOperation records a low-level config store operation.
	//
	// Parameters:
	//   - storeType: Store implementation (e.g., "badger", "s3")
	//   - operation: "read" or "write"
	//   - duration: Time taken
	//   - err: Error if failed
	RecordStoreOperation(storeType, operation string, duration time.Duration, err error)
}

// mountMetrics is the Prometheus implementation of MountMetrics.
type mountMetrics struct {
	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	malformedTotal     *prometheus.CounterVec
	mounts             *prometheus.GaugeVec
	probesTotal        *prometheus.CounterVec
	probeDuration      *prometheus.HistogramVec
	storeOpsTotal      *prometheus.CounterVec
	storeOpsDuration   *prometheus.HistogramVec
}

var (
	mountMetricsOnce   sync.Once
	sharedMountMetrics MountMetrics
)

// NewMountMetrics returns the Prometheus-backed MountMetrics.
//
// Collectors can only be registered once per registry, so every call returns
// the same instance. Returns a no-op implementation if metrics are disabled.
func NewMountMetrics() MountMetrics {
	if !IsEnabled() {
		return NewNoopMountMetrics()
	}

	mountMetricsOnce.Do(func() {
		sharedMountMetrics = newPrometheusMountMetrics(GetRegistry())
	})
	return sharedMountMetrics
}

func newPrometheusMountMetrics(reg prometheus.Registerer) *mountMetrics {
	return &mountMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "extmounts_operations_total",
				Help: "Total number of mount config operations by scope, operation, and status",
			},
			[]string{"scope", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "extmounts_operation_duration_seconds",
				Help: "Duration of mount config operations in seconds",
				Buckets: []float64{
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.025,  // 25ms
					0.1,    // 100ms
					0.5,    // 500ms
					2.5,    // 2.5s
				},
			},
			[]string{"scope", "operation"},
		),
		notificationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "extmounts_notifications_total",
				Help: "Total number of mount-changed notifications by signal and mount type",
			},
			[]string{"signal", "mount_type"},
		),
		malformedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "extmounts_malformed_records_total",
				Help: "Total number of stored mount table entries skipped while decoding",
			},
			[]string{"scope"},
		),
		mounts: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extmounts_mounts",
				Help: "Number of live mount configs per scope",
			},
			[]string{"scope"},
		),
		probesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "extmounts_backend_probes_total",
				Help: "Total number of backend status checks by backend class and resulting status",
			},
			[]string{"backend", "status"},
		),
		probeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extmounts_backend_probe_duration_seconds",
				Help:    "Duration of backend status checks in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		storeOpsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "extmounts_store_operations_total",
				Help: "Total number of config store reads and writes by store type and status",
			},
			[]string{"store_type", "operation", "status"},
		),
		storeOpsDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "extmounts_store_operation_duration_seconds",
				Help: "Duration of config store reads and writes in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *mountMetrics) RecordOperation(scope, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(scope, operation, statusLabel(err)).Inc()
	m.operationDuration.WithLabelValues(scope, operation).Observe(duration.Seconds())
}

func (m *mountMetrics) RecordNotification(signal, mountType string) {
	m.notificationsTotal.WithLabelValues(signal, mountType).Inc()
}

func (m *mountMetrics) RecordMalformedRecord(scope string) {
	m.malformedTotal.WithLabelValues(scope).Inc()
}

func (m *mountMetrics) SetMountCount(scope string, count int) {
	m.mounts.WithLabelValues(scope).Set(float64(count))
}

func (m *mountMetrics) RecordProbe(backendClass, status string, duration time.Duration) {
	m.probesTotal.WithLabelValues(backendClass, status).Inc()
	m.probeDuration.WithLabelValues(backendClass).Observe(duration.Seconds())
}

func (m *mountMetrics) RecordStoreOperation(storeType, operation string, duration time.Duration, err error) {
	m.storeOpsTotal.WithLabelValues(storeType, operation, statusLabel(err)).Inc()
	m.storeOpsDuration.WithLabelValues(storeType, operation).Observe(duration.Seconds())
}

// NewNoopMountMetrics returns a MountMetrics that records nothing.
func NewNoopMountMetrics() MountMetrics {
	return noopMountMetrics{}
}

// noopMountMetrics is a no-op implementation of MountMetrics with zero overhead.
type noopMountMetrics struct{}

func (noopMountMetrics) RecordOperation(string, string, time.Duration, error)      {}
func (noopMountMetrics) RecordNotification(string, string)                         {}
func (noopMountMetrics) RecordMalformedRecord(string)                              {}
func (noopMountMetrics) SetMountCount(string, int)                                 {}
func (noopMountMetrics) RecordProbe(string, string, time.Duration)                 {}
func (noopMountMetrics) RecordStoreOperation(string, string, time.Duration, error) {}
