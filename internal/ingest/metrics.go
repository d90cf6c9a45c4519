package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyperjump/wadai/internal/models"
)

// Metrics counts stored notes. A nil *Metrics records nothing.
type Metrics struct {
	inputs *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		inputs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wadai",
				Name:      "inputs_ingested_total",
				Help:      "Stored notes by category and whether a topic was assigned.",
			},
			[]string{"category", "assigned"},
		),
	}
}

func (m *Metrics) observe(in *models.Input) {
	if m == nil {
		return
	}
	assigned := "false"
	if in.TopicID != nil {
		assigned = "true"
	}
	m.inputs.WithLabelValues(string(in.Category), assigned).Inc()
}
