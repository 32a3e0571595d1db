package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_total",
			Help: "Total draw attempts by result and trigger",
		},
		[]string{"result", "trigger"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_duration_ms",
			Help:    "Draw processing duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "trigger"},
	)
)

// RecordDraw 记录开奖的业务指标
// result: "success" | "fail" | "noop"（认领失败视为 noop）
// trigger: "auto" | "manual" | "sweep"
func RecordDraw(result, trigger string, started time.Time) {
	res := strings.ToLower(strings.TrimSpace(result))
	if res != "success" && res != "noop" {
		res = "fail"
	}
	tg := strings.ToLower(strings.TrimSpace(trigger))
	if tg == "" {
		tg = "unknown"
	}
	drawTotal.WithLabelValues(res, tg).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	drawDuration.WithLabelValues(res, tg).Observe(durMs)
}
