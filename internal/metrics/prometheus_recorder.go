package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stageDuration *prom.HistogramVec
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	itemResults   *prom.CounterVec
	rebuilds      *prom.CounterVec
	storeItems    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitebuilder",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitebuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build pass duration by mode",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.itemResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "item_results_total",
			Help:      "Per-item processor results by outcome",
		}, []string{"processor", "result"})
		pr.rebuilds = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "rebuilds_total",
			Help:      "Rebuilds triggered by file changes, by kind",
		}, []string{"kind"})
		pr.storeItems = prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitebuilder",
			Name:      "store_items",
			Help:      "Items held by the content store after the last pass",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.itemResults, pr.rebuilds, pr.storeItems)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(mode string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncItemResult(processor string, result ResultLabel) {
	if p == nil || p.itemResults == nil {
		return
	}
	p.itemResults.WithLabelValues(processor, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRebuild(kind string) {
	if p == nil || p.rebuilds == nil {
		return
	}
	p.rebuilds.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetStoreItems(n int) {
	if p == nil || p.storeItems == nil {
		return
	}
	p.storeItems.Set(float64(n))
}
