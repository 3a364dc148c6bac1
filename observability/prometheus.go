package observability

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFactory is a MetricFactory that registers Prometheus
// collectors. Dotted metric names become underscored.
type PrometheusFactory struct {
	reg prometheus.Registerer
}

var _ MetricFactory = (*PrometheusFactory)(nil)

// NewPrometheusFactory returns a factory registering on reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{reg: reg}
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricName(name),
		Help: name,
	})
	return register(f.reg, c)
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    name,
		Buckets: prometheus.DefBuckets,
	})
	return register(f.reg, h)
}

// register returns the already registered collector when name is reused,
// so one registry can back several extensions.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
