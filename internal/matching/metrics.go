package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the collectors updated during a matching run. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Results         *prometheus.CounterVec
	CrossConfidence prometheus.Histogram
	FeedConfidence  prometheus.Histogram
	FeedCandidates  prometheus.Gauge
}

// NewMetrics registers the matching collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stopmatcher_match_results_total",
			Help: "Match results emitted, by outcome.",
		}, []string{"outcome"}),
		CrossConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stopmatcher_cross_confidence",
			Help:    "Pairwise rating of the selected candidate.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		FeedConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stopmatcher_feed_confidence",
			Help:    "Self-consistency rating of emitted feed stops.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		FeedCandidates: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stopmatcher_feed_candidates",
			Help: "Feed stops loaded into the candidate index.",
		}),
	}
}

func (m *Metrics) observe(r MatchResult) {
	if m == nil {
		return
	}
	switch {
	case r.Matched():
		m.Results.WithLabelValues("matched").Inc()
	case r.FeedConfidence != nil:
		m.Results.WithLabelValues("self_consistency").Inc()
	default:
		m.Results.WithLabelValues("unmatched").Inc()
	}
	if r.CrossConfidence != nil {
		m.CrossConfidence.Observe(*r.CrossConfidence)
	}
	if r.FeedConfidence != nil {
		m.FeedConfidence.Observe(*r.FeedConfidence)
	}
}

func (m *Metrics) setCandidates(n int) {
	if m == nil {
		return
	}
	m.FeedCandidates.Set(float64(n))
}
