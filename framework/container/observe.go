package container

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/gbili/di-why/framework/container"

// ── Options ───────────────────────────────────────────────────────────────────

// Option configures a Container at construction.
type Option func(c *Container) error

// WithLogger sets the diagnostics sink. nil keeps the no-op logger.
func WithLogger(logger Logger) Option {
	return func(c *Container) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithLoadDict registers the definitions of dict. It may be given several times;
// later dicts override earlier names.
func WithLoadDict(dict *LoadDict) Option {
	return func(c *Container) error {
		c.loadDict.merge(dict)
		return nil
	}
}

// WithContainers tracks the new container in set once it is built.
func WithContainers(set *Containers) Option {
	return func(c *Container) error {
		c.set = set
		return nil
	}
}

// WithTracer records one span per construction.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Container) error {
		if tracer != nil {
			c.tracer = tracer
		}
		return nil
	}
}

// WithMetrics registers load metrics on reg. Containers sharing a registerer
// share the collectors. A nil reg is an error.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Container) error {
		if reg == nil {
			return errors.New("container: nil metrics registerer")
		}
		m, err := newMetrics(reg)
		if err != nil {
			return err
		}
		c.metrics = m
		return nil
	}
}

func defaultTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(instrumentationName)
}

// ── Metrics ───────────────────────────────────────────────────────────────────

type metrics struct {
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	var (
		m   metrics
		err error
	)
	m.loads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diwhy",
		Name:      "loads_total",
		Help:      "Constructions finished, by name and result.",
	}, []string{"name", "result"}))
	if err != nil {
		return nil, err
	}
	m.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "diwhy",
		Name:      "load_duration_seconds",
		Help:      "Time spent constructing an instance, dependencies included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"name"}))
	if err != nil {
		return nil, err
	}
	m.inflight, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diwhy",
		Name:      "inflight_loads",
		Help:      "Constructions started and not yet settled.",
	}))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, errors.Wrap(err, "container: register metrics")
	}
	return collector, nil
}

func (m *metrics) started() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *metrics) finished(name string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.loads.WithLabelValues(name, result).Inc()
	m.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
