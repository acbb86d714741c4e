package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry implements Registry for long-running processes.
// Metrics are registered with a Prometheus registry and exposed via Handler.
type ScrapeRegistry struct {
	prom   *prometheus.Registry
	prefix string
}

// NewScrapeRegistry creates a ScrapeRegistry with the Go and process collectors
// registered. A non-empty prefix is prepended to every metric name.
func NewScrapeRegistry(prefix string) (*ScrapeRegistry, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}

	return &ScrapeRegistry{prom: reg, prefix: prefix}, nil
}

// Handler returns an http.Handler for the /metrics endpoint.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NewGauge creates and registers a new Gauge.
func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	opts.Namespace = r.prefix
	g := prometheus.NewGauge(opts)
	if err := register(r.prom, g, opts.Name); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGaugeVec creates and registers a new GaugeVec.
func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	opts.Namespace = r.prefix
	g := prometheus.NewGaugeVec(opts, labels)
	if err := register(r.prom, g, opts.Name); err != nil {
		return nil, err
	}
	return scrapeGaugeVec{g}, nil
}

// NewCounter creates and registers a new Counter.
func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	opts.Namespace = r.prefix
	c := prometheus.NewCounter(opts)
	if err := register(r.prom, c, opts.Name); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCounterVec creates and registers a new CounterVec.
func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	opts.Namespace = r.prefix
	c := prometheus.NewCounterVec(opts, labels)
	if err := register(r.prom, c, opts.Name); err != nil {
		return nil, err
	}
	return scrapeCounterVec{c}, nil
}

func register(reg *prometheus.Registry, c prometheus.Collector, name string) error {
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("registering %q: %w", name, err)
	}
	return nil
}

// scrapeGaugeVec adapts *prometheus.GaugeVec, whose With returns the
// concrete prometheus.Gauge type.
type scrapeGaugeVec struct {
	vec *prometheus.GaugeVec
}

func (g scrapeGaugeVec) With(labels prometheus.Labels) Gauge {
	return g.vec.With(labels)
}

func (g scrapeGaugeVec) Delete(labels prometheus.Labels) bool {
	return g.vec.Delete(labels)
}

type scrapeCounterVec struct {
	vec *prometheus.CounterVec
}

func (c scrapeCounterVec) With(labels prometheus.Labels) Counter {
	return c.vec.With(labels)
}
