package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendance module.
type Metrics struct {
	// Punch dispositions by punch type and gate verdict
	PunchDisposition *prometheus.CounterVec

	// Review outcomes by decision
	ReviewOutcome *prometheus.CounterVec

	// Distribution of computed risk scores
	RiskScore prometheus.Histogram

	// Held events awaiting review in this process's view
	HeldPending prometheus.Gauge
}

// New creates a new Metrics instance with all attendance module metrics registered.
func New() *Metrics {
	return &Metrics{
		PunchDisposition: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "punchtrust_punch_dispositions_total",
			Help: "Total punch gate verdicts by punch type and disposition",
		}, []string{"type", "disposition"}), // disposition: "accept", "require_reason", "hold"

		ReviewOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "punchtrust_review_outcomes_total",
			Help: "Total held event reviews by decision",
		}, []string{"decision"}),

		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "punchtrust_risk_score",
			Help:    "Distribution of trust scores assigned to punches",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 7, 10, 15, 20},
		}),

		HeldPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "punchtrust_held_events_pending",
			Help: "Punches currently suspended for supervisor review",
		}),
	}
}

// IncrementDisposition records a gate verdict for a punch.
func (m *Metrics) IncrementDisposition(punchType, disposition string) {
	if m != nil {
		m.PunchDisposition.WithLabelValues(punchType, disposition).Inc()
	}
}

// IncrementReview records a held event review outcome.
func (m *Metrics) IncrementReview(decision string) {
	if m != nil {
		m.ReviewOutcome.WithLabelValues(decision).Inc()
	}
}

// ObserveRiskScore records a computed trust score.
func (m *Metrics) ObserveRiskScore(score float64) {
	if m != nil {
		m.RiskScore.Observe(score)
	}
}

// HeldEventCreated tracks a punch entering the review queue.
func (m *Metrics) HeldEventCreated() {
	if m != nil {
		m.HeldPending.Inc()
	}
}

// HeldEventResolved tracks a review consuming a pending event.
func (m *Metrics) HeldEventResolved() {
	if m != nil {
		m.HeldPending.Dec()
	}
}
