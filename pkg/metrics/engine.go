package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records pricing and coupon engine outcomes.
type EngineMetrics struct {
	resolveDuration *prometheus.HistogramVec
	resolveTotal    *prometheus.CounterVec
	couponTotal     *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	resolveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "price_resolve_duration_seconds",
		Help:    "Duration of price resolutions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	resolveTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_resolve_total",
		Help: "Price resolutions by outcome.",
	}, []string{"outcome"})
	couponTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_apply_total",
		Help: "Coupon applications by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(resolveDuration, resolveTotal, couponTotal)
	return &EngineMetrics{
		resolveDuration: resolveDuration,
		resolveTotal:    resolveTotal,
		couponTotal:     couponTotal,
	}
}

// ObserveResolve records one price resolution.
func (m *EngineMetrics) ObserveResolve(outcome string, duration time.Duration) {
	if m == nil || m.resolveTotal == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.resolveTotal.WithLabelValues(label).Inc()
	m.resolveDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncCouponApply records one coupon application attempt.
func (m *EngineMetrics) IncCouponApply(outcome string) {
	if m == nil || m.couponTotal == nil {
		return
	}
	m.couponTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
