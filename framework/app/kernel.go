package app

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/gbili/di-why/framework/config"
	"github.com/gbili/di-why/framework/container"
	"github.com/gbili/di-why/framework/logging"
	"github.com/gbili/di-why/framework/manifest"
	"github.com/gbili/di-why/framework/providers"
	"github.com/gbili/di-why/routing"
)

const tracerName = "github.com/gbili/di-why"

// ShutdownEvent is emitted on the container when Run returns.
const ShutdownEvent = "shutdown"

// Application is the composition root: it collects providers, builds one
// container from them and serves its router.
type Application struct {
	Config     *config.Config
	Logger     logging.Sink
	Metrics    *prometheus.Registry
	Containers *container.Containers
	Providers  *container.ProviderRegistry

	app *container.Container
}

// Option customizes New.
type Option func(*options)

type options struct {
	catalog *manifest.Catalog
	sink    logging.Sink
}

// WithCatalog sets the Catalog used to read the configured manifest.
func WithCatalog(c *manifest.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithSink replaces the logger built from the configuration.
func WithSink(s logging.Sink) Option {
	return func(o *options) { o.sink = s }
}

// New registers the framework providers for cfg, plus the definitions of
// the configured manifest if any. Nothing is built yet.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	o := options{catalog: manifest.NewCatalog()}
	for _, opt := range opts {
		opt(&o)
	}

	sink := o.sink
	if sink == nil {
		var err error
		if sink, err = logging.FromConfig(cfg); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &Application{
		Config:     cfg,
		Logger:     sink,
		Metrics:    reg,
		Containers: container.NewContainers(),
		Providers:  container.NewProviderRegistry(),
	}

	a.Register(&providers.ConfigServiceProvider{Config: cfg})
	a.Register(&providers.LoggingServiceProvider{Sink: sink})
	a.Register(&providers.MetricsServiceProvider{Registry: reg})
	a.Register(&providers.RoutingServiceProvider{})

	if cfg.Container.Manifest != "" {
		dict, err := manifest.Load(cfg.Container.Manifest, o.catalog)
		if err != nil {
			return nil, err
		}
		a.Register(&providers.ManifestServiceProvider{Dict: dict})
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Container builds the container on first call.
func (a *Application) Container() (*container.Container, error) {
	if a.app != nil {
		return a.app, nil
	}
	opts := []container.Option{
		container.WithLogger(a.Logger),
		container.WithContainers(a.Containers),
		container.WithTracer(otel.Tracer(tracerName)),
	}
	if a.Config.Container.Metrics {
		opts = append(opts, container.WithMetrics(a.Metrics))
	}
	c, err := a.Providers.Build(opts...)
	if err != nil {
		return nil, err
	}
	a.app = c
	return c, nil
}

// Boot builds the container, loads every definition and boots the providers.
func (a *Application) Boot(ctx context.Context) error {
	c, err := a.Container()
	if err != nil {
		return err
	}
	if err := a.Providers.Boot(ctx); err != nil {
		return err
	}
	if a.IsDebug() {
		a.Logger.Debug("container definitions", "names", c.Names())
	}
	a.Logger.Info("application booted", "container", c.ID(), "loaded", len(c.Loaded()))
	return nil
}

// Router resolves the router from the container.
func (a *Application) Router(ctx context.Context) (*routing.Router, error) {
	c, err := a.Container()
	if err != nil {
		return nil, err
	}
	return container.Resolve[*routing.Router](ctx, c, "router")
}

// Run boots the application (if needed) and serves HTTP until ctx is done,
// then emits ShutdownEvent on the container.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(ctx); err != nil {
			return err
		}
	}
	router, err := a.Router(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "name", a.Config.App.Name, "addr", srv.Addr, "env", a.Environment())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("server shutdown", "error", err)
		}
	}

	return a.shutdown()
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	if err := a.app.Emit(ctx, ShutdownEvent); err != nil {
		a.Logger.Error("shutdown event", "error", err)
		return err
	}
	a.Logger.Info("application stopped")
	return nil
}

// shutdownTimeout bounds the server shutdown and the shutdown event.
func (a *Application) shutdownTimeout() time.Duration {
	if a.Config.App.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.Config.App.ShutdownTimeout) * time.Second
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
