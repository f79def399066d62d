package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TripMetrics records save and delete outcomes together with the storage
// cleanup they trigger.
type TripMetrics struct {
	saves           *prometheus.CounterVec
	saveDuration    *prometheus.HistogramVec
	rollbackObjects prometheus.Counter
	cleanupFailures *prometheus.CounterVec
	deletes         *prometheus.CounterVec
}

func NewTripMetrics(reg prometheus.Registerer) *TripMetrics {
	if reg == nil {
		return &TripMetrics{}
	}
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_saves_total",
		Help: "Trip saves by mode and outcome.",
	}, []string{"mode", "outcome"})
	saveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trip_save_duration_seconds",
		Help:    "Duration of trip saves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	rollbackObjects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trip_rollback_objects_total",
		Help: "Uploaded objects removed after a failed save.",
	})
	cleanupFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_cleanup_failures_total",
		Help: "Storage removals that failed during rollback or cleanup.",
	}, []string{"stage"})
	deletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_deletes_total",
		Help: "Trip deletions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(saves, saveDuration, rollbackObjects, cleanupFailures, deletes)
	return &TripMetrics{
		saves:           saves,
		saveDuration:    saveDuration,
		rollbackObjects: rollbackObjects,
		cleanupFailures: cleanupFailures,
		deletes:         deletes,
	}
}

func (m *TripMetrics) ObserveSave(mode string, err error, duration time.Duration) {
	if m == nil || m.saves == nil {
		return
	}
	m.saves.WithLabelValues(normalizeLabel(mode), outcome(err)).Inc()
	m.saveDuration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
}

func (m *TripMetrics) AddRollbackObjects(n int) {
	if m == nil || m.rollbackObjects == nil || n <= 0 {
		return
	}
	m.rollbackObjects.Add(float64(n))
}

func (m *TripMetrics) IncCleanupFailure(stage string) {
	if m == nil || m.cleanupFailures == nil {
		return
	}
	m.cleanupFailures.WithLabelValues(normalizeLabel(stage)).Inc()
}

func (m *TripMetrics) ObserveDelete(err error) {
	if m == nil || m.deletes == nil {
		return
	}
	m.deletes.WithLabelValues(outcome(err)).Inc()
}
