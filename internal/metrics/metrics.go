package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the visit service.
type Metrics struct {
	VisitsCreated    *prometheus.CounterVec
	VisitsCompleted  *prometheus.CounterVec
	CheckInRejected  *prometheus.CounterVec
	GeofenceSkipped  prometheus.Counter
	UrgencyResolved  prometheus.Counter
	AlertsDuration   prometheus.Histogram
	AlertsFamilies   *prometheus.GaugeVec
	EvidenceUploaded prometheus.Counter
}

// New registers collectors on reg. Pass prometheus.DefaultRegisterer in main
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VisitsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visits_created_total",
			Help: "Visits created, by initial status",
		}, []string{"status"}),

		VisitsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visits_completed_total",
			Help: "Planned visits completed through a check-in flow",
		}, []string{"entry_point"}),

		CheckInRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visit_checkins_rejected_total",
			Help: "Completion attempts rejected, by reason",
		}, []string{"reason"}),

		GeofenceSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "visit_checkins_unverified_total",
			Help: "Completions accepted without a proximity check because the family has no coordinates",
		}),

		UrgencyResolved: f.NewCounter(prometheus.CounterOpts{
			Name: "family_urgency_resolved_total",
			Help: "Families moved from URGENT to ACTIVE by a visit",
		}),

		AlertsDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "alerts_compute_duration_seconds",
			Help:    "Duration of a full alerts snapshot computation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		AlertsFamilies: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alerts_families",
			Help: "Families in the last computed alerts snapshot, by list",
		}, []string{"list"}),

		EvidenceUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "visit_evidence_uploaded_total",
			Help: "Proof photos written to the evidence store",
		}),
	}
}

func (m *Metrics) IncVisitCreated(status string) {
	if m != nil {
		m.VisitsCreated.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncVisitCompleted(entryPoint string) {
	if m != nil {
		m.VisitsCompleted.WithLabelValues(entryPoint).Inc()
	}
}

func (m *Metrics) IncCheckInRejected(reason string) {
	if m != nil {
		m.CheckInRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncGeofenceSkipped() {
	if m != nil {
		m.GeofenceSkipped.Inc()
	}
}

func (m *Metrics) IncUrgencyResolved() {
	if m != nil {
		m.UrgencyResolved.Inc()
	}
}

func (m *Metrics) IncEvidenceUploaded() {
	if m != nil {
		m.EvidenceUploaded.Inc()
	}
}

// ObserveAlerts records one snapshot computation.
func (m *Metrics) ObserveAlerts(d time.Duration, urgent, forgotten int) {
	if m == nil {
		return
	}
	m.AlertsDuration.Observe(d.Seconds())
	m.AlertsFamilies.WithLabelValues("urgent").Set(float64(urgent))
	m.AlertsFamilies.WithLabelValues("forgotten").Set(float64(forgotten))
}
