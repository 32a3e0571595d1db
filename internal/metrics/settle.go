package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_total",
			Help: "Total round settlements by result",
		},
		[]string{"result"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_duration_ms",
			Help:    "Round settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordSettle 记录结算的业务指标
// result: "success" | "fail" | "already"（幂等命中）
func RecordSettle(result string, started time.Time) {
	res := result
	if res != "success" && res != "already" {
		res = "fail"
	}
	settleTotal.WithLabelValues(res).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	settleDuration.WithLabelValues(res).Observe(durMs)
}
