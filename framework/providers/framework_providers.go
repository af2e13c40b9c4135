package providers

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gbili/di-why/framework/config"
	"github.com/gbili/di-why/framework/container"
	"github.com/gbili/di-why/framework/logging"
	"github.com/gbili/di-why/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider defines the application configuration.
//
// Defined names:
//   - "config"  → *config.Config
//
// Config is loaded once at bootstrap (config.Load) and defined as is.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(dict *container.LoadDict) {
	dict.Add("config", container.Definition{Strategy: container.Instance(p.Config)})
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider defines the application logger.
//
// Defined names:
//   - "logger"  → logging.Sink, Sink when set, otherwise built from "config"
type LoggingServiceProvider struct {
	container.BaseProvider
	Sink logging.Sink
}

func (p *LoggingServiceProvider) Register(dict *container.LoadDict) {
	if p.Sink != nil {
		dict.Add("logger", container.Definition{Strategy: container.Instance(p.Sink)})
		return
	}
	dict.Add("logger", container.Definition{
		Strategy: container.Factory(logging.FromConfig),
		Locate:   container.Refs("config"),
	})
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider defines the metrics registry shared by the
// container and the /metrics route.
//
// Defined names:
//   - "metrics" → *prometheus.Registry
type MetricsServiceProvider struct {
	container.BaseProvider
	Registry *prometheus.Registry
}

func (p *MetricsServiceProvider) Register(dict *container.LoadDict) {
	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	dict.Add("metrics", container.Definition{Strategy: container.Instance(reg)})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider defines the HTTP router and, once booted, mounts the
// container introspection and metrics routes as configured. Requests are
// logged only when APP_DEBUG is set.
//
// Defined names:
//   - "router"  → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(dict *container.LoadDict) {
	dict.Add("router", container.Definition{
		Strategy: container.Factory(func(cfg *config.Config) *routing.Router {
			var router *routing.Router
			if cfg.App.Debug {
				router = routing.New()
			} else {
				router = routing.NewBare()
				router.Middleware(middleware.Recoverer, middleware.RealIP)
			}
			if len(cfg.App.CORSOrigins) > 0 {
				router.Middleware(routing.CORS(cfg.App.CORSOrigins...))
			}
			return router
		}),
		Locate: container.Refs("config"),
	})
}

func (p *RoutingServiceProvider) Boot(ctx context.Context, app *container.Container) error {
	router, err := container.Resolve[*routing.Router](ctx, app, "router")
	if err != nil {
		return err
	}
	cfg, err := container.Resolve[*config.Config](ctx, app, "config")
	if err != nil {
		return err
	}

	if cfg.Container.Introspection {
		routing.Introspect(router, app)
	}
	if cfg.Container.Metrics {
		reg, err := container.Resolve[*prometheus.Registry](ctx, app, "metrics")
		if err != nil {
			return err
		}
		routing.Metrics(router, cfg.Container.MetricsPath, reg)
	}
	return nil
}

// ── ManifestServiceProvider ───────────────────────────────────────────────────

// ManifestServiceProvider contributes definitions read from a manifest.
type ManifestServiceProvider struct {
	container.BaseProvider
	Dict *container.LoadDict
}

func (p *ManifestServiceProvider) Register(dict *container.LoadDict) {
	if p.Dict == nil {
		return
	}
	for _, name := range p.Dict.Names() {
		def, _ := p.Dict.Get(name)
		dict.Add(name, def)
	}
}
