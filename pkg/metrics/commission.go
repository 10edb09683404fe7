package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	variationPositive = "positive"
	variationNegative = "negative"
	variationNeutral  = "neutral"
)

// CommissionMetrics tracks recalculation outcomes. Neutral runs write
// no audit row, so the counter here is the only place they surface.
type CommissionMetrics struct {
	recalculations *prometheus.CounterVec
	variation      prometheus.Histogram
}

// NewCommissionMetrics registers the commission engine metrics.
func NewCommissionMetrics(reg prometheus.Registerer) *CommissionMetrics {
	if reg == nil {
		return &CommissionMetrics{}
	}
	recalculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_recalculations_total",
		Help: "Commission recalculation runs by variation direction.",
	}, []string{"variation"})
	variation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commission_recalculation_diff",
		Help:    "Absolute commission difference produced by recalculations.",
		Buckets: []float64{0.01, 0.1, 1, 5, 10, 50, 100, 500},
	})
	reg.MustRegister(recalculations, variation)
	return &CommissionMetrics{
		recalculations: recalculations,
		variation:      variation,
	}
}

// ObserveRecalculation records one recalculation run and its absolute diff.
func (c *CommissionMetrics) ObserveRecalculation(diff float64) {
	if c == nil || c.recalculations == nil {
		return
	}
	label := variationNeutral
	switch {
	case diff > 0:
		label = variationPositive
	case diff < 0:
		label = variationNegative
		diff = -diff
	}
	c.recalculations.WithLabelValues(label).Inc()
	if c.variation != nil {
		c.variation.Observe(diff)
	}
}
