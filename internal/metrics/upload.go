package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics counts single-file uploads per transport and outcome.
type UploadMetrics struct {
	uploads   *prometheus.CounterVec
	fallbacks prometheus.Counter
	bytes     prometheus.Counter
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uploads_total",
		Help: "Media uploads by transport and outcome.",
	}, []string{"transport", "outcome"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_upload_fallbacks_total",
		Help: "Uploads retried through the secondary transport.",
	})
	bytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_upload_bytes_total",
		Help: "Bytes stored by successful uploads.",
	})
	reg.MustRegister(uploads, fallbacks, bytes)
	return &UploadMetrics{uploads: uploads, fallbacks: fallbacks, bytes: bytes}
}

func (m *UploadMetrics) Observe(transport string, err error, size int64) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(transport), outcome(err)).Inc()
	if err == nil && size > 0 {
		m.bytes.Add(float64(size))
	}
}

func (m *UploadMetrics) IncFallback() {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
