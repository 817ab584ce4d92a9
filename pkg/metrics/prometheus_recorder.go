package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/pkgfeed/pkg/errors"
)

const namespace = "pkgfeed"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	runs          *prom.CounterVec
	changes       *prom.CounterVec
	packages      prom.Gauge
	entries       *prom.CounterVec
	feedItems     prom.Gauge
	warnings      *prom.CounterVec
	lastRun       prom.Gauge
}

// NewPrometheusRecorder constructs and registers the run metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by outcome",
		}, []string{"result"}),
		changes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Detected package changes by kind",
		}, []string{"kind"}),
		packages: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "packages",
			Help:      "Packages in the latest snapshot",
		}),
		entries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "feed_entries_total",
			Help:      "Feed entries by outcome",
		}, []string{"outcome"}),
		feedItems: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_items",
			Help:      "Items in the persisted feed",
		}),
		warnings: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal failures by stage",
		}, []string{"stage"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.runs, pr.changes, pr.packages, pr.entries, pr.feedItems, pr.warnings, pr.lastRun)
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

// WriteTextfile writes all metrics in the text exposition format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRun(result ResultLabel) {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) AddChanges(kind string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.changes.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) SetPackages(n int) {
	if p == nil {
		return
	}
	p.packages.Set(float64(n))
}

func (p *PrometheusRecorder) AddEntries(outcome string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.entries.WithLabelValues(outcome).Add(float64(n))
}

func (p *PrometheusRecorder) SetFeedItems(n int) {
	if p == nil {
		return
	}
	p.feedItems.Set(float64(n))
}

func (p *PrometheusRecorder) IncWarning(stage string) {
	if p == nil {
		return
	}
	p.warnings.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) SetLastRun(t time.Time) {
	if p == nil {
		return
	}
	p.lastRun.Set(float64(t.Unix()))
}
