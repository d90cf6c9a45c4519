package topic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assignment outcomes recorded by Metrics.
const (
	OutcomeMerged  = "merged"
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
)

// Metrics records topic assignment outcomes. A nil *Metrics records nothing.
type Metrics struct {
	assignments *prometheus.CounterVec
	similarity  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		assignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wadai",
				Name:      "topic_assignments_total",
				Help:      "Notes processed by the topic engine, by outcome.",
			},
			[]string{"outcome"},
		),
		similarity: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "wadai",
				Name:      "topic_match_similarity",
				Help:      "Cosine similarity of notes merged into an existing topic.",
				Buckets:   prometheus.LinearBuckets(0.5, 0.05, 11),
			},
		),
	}
}

func (m *Metrics) observeMerged(similarity float64) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(OutcomeMerged).Inc()
	m.similarity.Observe(similarity)
}

func (m *Metrics) observeCreated() {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(OutcomeCreated).Inc()
}

func (m *Metrics) observeSkipped() {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(OutcomeSkipped).Inc()
}
