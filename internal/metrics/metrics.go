package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promptwatch"

// Provider holds the watcher collectors. A nil *Provider is valid and
// records nothing.
type Provider struct {
	registry       *prometheus.Registry
	ticks          *prometheus.CounterVec
	injections     *prometheus.CounterVec
	suppressed     *prometheus.CounterVec
	excluded       *prometheus.CounterVec
	sourceErrors   *prometheus.CounterVec
	sinkErrors     *prometheus.CounterVec
	activeWatchers prometheus.Gauge
}

func NewProvider(registry *prometheus.Registry) *Provider {
	if registry == nil {
		return nil
	}

	provider := &Provider{
		registry: registry,
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Total number of watcher ticks by target and outcome",
			},
			[]string{"target", "outcome"},
		),
		injections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "injections_total",
				Help:      "Total number of responses injected by target and rule",
			},
			[]string{"target", "rule"},
		),
		suppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suppressed_total",
				Help:      "Total number of detected prompts skipped inside their cooldown",
			},
			[]string{"target"},
		),
		excluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "excluded_total",
				Help:      "Total number of snapshots suppressed by an exclusion pattern",
			},
			[]string{"target"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Total number of failed snapshot captures",
			},
			[]string{"target"},
		),
		sinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Total number of failed keystroke injections",
			},
			[]string{"target"},
		),
		activeWatchers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_watchers",
				Help:      "Number of running watchers",
			},
		),
	}

	registry.MustRegister(
		provider.ticks,
		provider.injections,
		provider.suppressed,
		provider.excluded,
		provider.sourceErrors,
		provider.sinkErrors,
		provider.activeWatchers,
	)

	return provider
}

// NewDefaultProvider builds a provider on a fresh registry that also exports
// Go runtime and process collectors.
func NewDefaultProvider() *Provider {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewProvider(registry)
}

func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Provider) Handler() http.Handler {
	if p == nil || p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Provider) RecordTick(target, outcome string) {
	if p != nil && p.ticks != nil {
		p.ticks.WithLabelValues(target, outcome).Inc()
	}
}

func (p *Provider) RecordInjection(target, rule string) {
	if p != nil && p.injections != nil {
		p.injections.WithLabelValues(target, rule).Inc()
	}
}

func (p *Provider) RecordSuppressed(target string) {
	if p != nil && p.suppressed != nil {
		p.suppressed.WithLabelValues(target).Inc()
	}
}

func (p *Provider) RecordExcluded(target string) {
	if p != nil && p.excluded != nil {
		p.excluded.WithLabelValues(target).Inc()
	}
}

func (p *Provider) RecordSourceError(target string) {
	if p != nil && p.sourceErrors != nil {
		p.sourceErrors.WithLabelValues(target).Inc()
	}
}

func (p *Provider) RecordSinkError(target string) {
	if p != nil && p.sinkErrors != nil {
		p.sinkErrors.WithLabelValues(target).Inc()
	}
}

func (p *Provider) WatcherStarted() {
	if p != nil && p.activeWatchers != nil {
		p.activeWatchers.Inc()
	}
}

func (p *Provider) WatcherStopped() {
	if p != nil && p.activeWatchers != nil {
		p.activeWatchers.Dec()
	}
}
