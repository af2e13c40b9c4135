package container_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gbili/di-why/framework/container"
)

func observedDict() *container.LoadDict {
	return container.NewLoadDict().
		Add("ok", container.Definition{Strategy: container.Instance(1)}).
		Add("bad", container.Definition{Strategy: container.Factory(func() (int, error) { return 0, assert.AnError })})
}

func TestMetrics_CountLoads(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := newContainer(t, observedDict(), container.WithMetrics(reg))
	ctx := context.Background()

	_, err := c.Get(ctx, "ok")
	require.NoError(t, err)
	_, err = c.Get(ctx, "ok")
	require.NoError(t, err)
	_, err = c.Get(ctx, "bad")
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "diwhy_loads_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["name"]+"/"+labels["result"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"ok/ok": 1, "bad/error": 1}, counts)

	series, err := testutil.GatherAndCount(reg, "diwhy_load_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestMetrics_SharedRegistererReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newContainer(t, observedDict(), container.WithMetrics(reg))
	b := newContainer(t, observedDict(), container.WithMetrics(reg))

	_, err := a.Get(context.Background(), "ok")
	require.NoError(t, err)
	_, err = b.Get(context.Background(), "ok")
	require.NoError(t, err)

	expected := `
# HELP diwhy_inflight_loads Constructions started and not yet settled.
# TYPE diwhy_inflight_loads gauge
diwhy_inflight_loads 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "diwhy_inflight_loads"))

	series, err := testutil.GatherAndCount(reg, "diwhy_loads_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestMetrics_NilRegistererFails(t *testing.T) {
	set := container.NewContainers()
	_, err := container.New(container.WithContainers(set), container.WithMetrics(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil metrics registerer")
	assert.Equal(t, 0, set.Len())
}

func TestTracing_SpanPerConstruction(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	c := newContainer(t, observedDict(), container.WithTracer(provider.Tracer("test")))
	ctx := context.Background()

	_, err := c.Get(ctx, "ok")
	require.NoError(t, err)
	_, err = c.Get(ctx, "ok")
	require.NoError(t, err)
	_, err = c.Get(ctx, "bad")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	names := map[string]codes.Code{}
	for _, span := range spans {
		assert.Equal(t, "container.load", span.Name())
		for _, attr := range span.Attributes() {
			if attr.Key == "di.name" {
				names[attr.Value.AsString()] = span.Status().Code
			}
		}
	}
	assert.Equal(t, map[string]codes.Code{"ok": codes.Unset, "bad": codes.Error}, names)
}
