package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	participateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participate_requests_total",
			Help: "Total participate requests by result and kind",
		},
		[]string{"result", "kind"},
	)

	participateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "participate_request_duration_ms",
			Help:    "Participate request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "kind"},
	)

	participateSoldShares = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participate_sold_shares_total",
			Help: "Total shares sold by kind",
		},
		[]string{"kind"},
	)
)

// RecordParticipate records business metrics for a participate call.
// result should be "success" or "fail"; kind is "paid" or "free".
func RecordParticipate(result, kind string, shares int64, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	k := strings.ToLower(kind)
	participateTotal.WithLabelValues(res, k).Inc()
	if res == "success" && shares > 0 {
		participateSoldShares.WithLabelValues(k).Add(float64(shares))
	}
	durMs := float64(time.Since(started).Milliseconds())
	participateDuration.WithLabelValues(res, k).Observe(durMs)
}
