package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	SignInAttempts   *prometheus.CounterVec
	Lockouts         prometheus.Counter
	LedgerWriteFails prometheus.Counter

	SessionResolutions *prometheus.CounterVec
	SuppressedSignIns  prometheus.Counter

	ItemsReported     prometheus.Counter
	ClaimsSubmitted   prometheus.Counter
	Transitions       *prometheus.CounterVec
	GuardRejections   *prometheus.CounterVec
	TxLockWait        prometheus.Histogram
	ActivityRecorded  *prometheus.CounterVec
	ActivitySinkFails prometheus.Counter
}

// New registers all collectors on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		SignInAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_sign_in_attempts_total",
			Help: "Sign-in attempts, labeled by outcome",
		}, []string{"outcome"}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_lockouts_total",
			Help: "Lockouts written after repeated failed sign-ins",
		}),
		LedgerWriteFails: f.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_ledger_write_failures_total",
			Help: "Login ledger writes that failed and were skipped",
		}),
		SessionResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_session_resolutions_total",
			Help: "Tab boot resolutions, labeled by resulting phase",
		}, []string{"phase"}),
		SuppressedSignIns: f.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_suppressed_sign_ins_total",
			Help: "SIGNED_IN pushes ignored because an auth flow was active",
		}),
		ItemsReported: f.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_items_reported_total",
			Help: "Lost items reported",
		}),
		ClaimsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_claims_submitted_total",
			Help: "Claims submitted",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_transitions_total",
			Help: "Item and claim status transitions, labeled by entity and target status",
		}, []string{"entity", "status"}),
		GuardRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_guard_rejections_total",
			Help: "Staff actions rejected because the same action was already in progress",
		}, []string{"action"}),
		TxLockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lostfound_tx_lock_wait_seconds",
			Help:    "Time spent waiting to acquire an in-memory transaction shard",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ActivityRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_activity_recorded_total",
			Help: "Activity records written, labeled by audience",
		}, []string{"audience"}),
		ActivitySinkFails: f.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_activity_sink_failures_total",
			Help: "Activity records that could not be forwarded to the external sink",
		}),
	}
}

func (m *Metrics) IncSignIn(outcome string) {
	if m != nil {
		m.SignInAttempts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncLockout() {
	if m != nil {
		m.Lockouts.Inc()
	}
}

func (m *Metrics) IncLedgerWriteFailure() {
	if m != nil {
		m.LedgerWriteFails.Inc()
	}
}

func (m *Metrics) IncSessionResolution(phase string) {
	if m != nil {
		m.SessionResolutions.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) IncSuppressedSignIn() {
	if m != nil {
		m.SuppressedSignIns.Inc()
	}
}

func (m *Metrics) IncItemsReported() {
	if m != nil {
		m.ItemsReported.Inc()
	}
}

func (m *Metrics) IncClaimsSubmitted() {
	if m != nil {
		m.ClaimsSubmitted.Inc()
	}
}

func (m *Metrics) IncTransition(entity, status string) {
	if m != nil {
		m.Transitions.WithLabelValues(entity, status).Inc()
	}
}

func (m *Metrics) IncGuardRejection(action string) {
	if m != nil {
		m.GuardRejections.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) ObserveTxLockWait(seconds float64) {
	if m != nil {
		m.TxLockWait.Observe(seconds)
	}
}

func (m *Metrics) IncActivity(audience string) {
	if m != nil {
		m.ActivityRecorded.WithLabelValues(audience).Inc()
	}
}

func (m *Metrics) IncActivitySinkFailure() {
	if m != nil {
		m.ActivitySinkFails.Inc()
	}
}
