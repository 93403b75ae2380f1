// Package observability assembles the vendor-neutral ports from the zap,
// otel and prometheus adapters chosen at startup.
package observability

import (
	"maps"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instruments
}

// New returns an Observability over the given adapters. A nil tracer or
// logger is replaced by its no-op. Instruments are looked up by key; a key
// that was never registered yields a no-op instrument.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	p := &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: instruments{counters: maps.Clone(counters), histograms: maps.Clone(histograms)},
	}
	if p.tracer == nil {
		p.tracer = observability.NopTracer()
	}
	if p.logger == nil {
		p.logger = observability.NopLogger()
	}
	return p
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (in instruments) Counter(k observability.MetricKey) observability.Counter {
	if c := in.counters[k]; c != nil {
		return c
	}
	return observability.NopCounter()
}

func (in instruments) Histogram(k observability.MetricKey) observability.Histogram {
	if h := in.histograms[k]; h != nil {
		return h
	}
	return observability.NopHistogram()
}
