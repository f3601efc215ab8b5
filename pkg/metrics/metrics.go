package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 核心引擎的运行指标
// 使用独立 registry，避免和默认 registry 里的进程指标混在一起
type Collector struct {
	registry *prometheus.Registry

	accrualPassesTotal   prometheus.Counter
	accrualPassFailures  prometheus.Counter
	accrualPassDuration  prometheus.Histogram
	payoutsTotal         *prometheus.CounterVec
	payoutAmountTotal    *prometheus.CounterVec
	commissionsTotal     prometheus.Counter
	commissionAmount     prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		accrualPassesTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "accrual_passes_total",
			Help: "Total number of completed accrual passes",
		}),
		accrualPassFailures: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "accrual_pass_failures_total",
			Help: "Total number of accrual passes aborted by store errors",
		}),
		accrualPassDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "accrual_pass_duration_seconds",
			Help:    "Time taken by one accrual pass",
			Buckets: prometheus.DefBuckets,
		}),
		payoutsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Number of payout events by type",
		}, []string{"type"}),
		payoutAmountTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "payout_amount_total",
			Help: "Paid amount in currency units by payout type",
		}, []string{"type"}),
		commissionsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "referral_commissions_total",
			Help: "Number of first-deposit commissions paid",
		}),
		commissionAmount: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "referral_commission_amount_total",
			Help: "Paid commission amount in currency units",
		}),
	}
}

func (c *Collector) ObservePass(duration time.Duration, failed bool) {
	if failed {
		c.accrualPassFailures.Inc()
	} else {
		c.accrualPassesTotal.Inc()
	}
	c.accrualPassDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordPayout(payoutType string, amount int64) {
	c.payoutsTotal.WithLabelValues(payoutType).Inc()
	c.payoutAmountTotal.WithLabelValues(payoutType).Add(float64(amount))
}

func (c *Collector) RecordCommission(amount int64) {
	c.commissionsTotal.Inc()
	c.commissionAmount.Add(float64(amount))
}

// Handler 暴露 /metrics 的 http.Handler，挂到 gin 路由上
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
