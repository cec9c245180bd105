package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lostfound/internal/ratelimit/models"
)

type Metrics struct {
	Rejected *prometheus.CounterVec
	Errors   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		Rejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_ratelimit_rejected_total",
			Help: "Requests rejected with 429, by endpoint class",
		}, []string{"class"}),
		Errors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lostfound_ratelimit_store_errors_total",
			Help: "Bucket store failures; the request was let through",
		}),
	}
}

func (m *Metrics) IncRejected(class models.EndpointClass) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) IncError() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}
