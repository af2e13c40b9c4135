package container

import (
	"context"

	"github.com/pkg/errors"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider contributes definitions to a container and, once the
// container is built and loaded, gets a chance to use what it registered.
//
//	type CacheProvider struct{ container.BaseProvider }
//
//	func (p *CacheProvider) Register(dict *container.LoadDict) {
//	    dict.Add("cache", container.Definition{
//	        Strategy: container.Factory(cache.New),
//	        Locate:   container.Refs("config"),
//	    })
//	}
//
//	func (p *CacheProvider) Boot(ctx context.Context, app *container.Container) error {
//	    c, err := container.Resolve[*cache.Cache](ctx, app, "cache")
//	    if err != nil {
//	        return err
//	    }
//	    return c.Warm(ctx)
//	}
type ServiceProvider interface {
	// Register adds definitions. Nothing is constructed yet.
	Register(dict *LoadDict)

	// Boot is called after every registered definition has been loaded.
	Boot(ctx context.Context, app *Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op Boot.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(dict *container.LoadDict) { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry collects providers, builds one container from their
// definitions and boots them in registration order.
type ProviderRegistry struct {
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	dict       *LoadDict
	app        *Container
	booted     bool
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		registered: make(map[ServiceProvider]bool),
		dict:       NewLoadDict(),
	}
}

// Register adds a provider and calls its Register. Registering the same
// provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) {
	if r.registered[provider] {
		return
	}
	r.registered[provider] = true
	provider.Register(r.dict)
	r.providers = append(r.providers, provider)
}

// Build creates the container holding every registered definition. opts are
// applied after the registry's own definitions.
func (r *ProviderRegistry) Build(opts ...Option) (*Container, error) {
	if r.app != nil {
		return r.app, nil
	}
	app, err := New(append([]Option{WithLoadDict(r.dict)}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "providers: build container")
	}
	r.app = app
	return app, nil
}

// Boot loads every definition, then calls each provider's Boot. It runs once;
// Build must have been called. It fails with ErrLoadInProgress when another
// LoadAll is running on the container.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	if r.booted {
		return nil
	}
	if r.app == nil {
		return errors.New("providers: boot before build")
	}
	inProgress, err := r.app.LoadAll(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "providers: load")
	}
	if inProgress {
		return errors.Wrap(ErrLoadInProgress, "providers: boot")
	}
	for _, provider := range r.providers {
		if err := provider.Boot(ctx, r.app); err != nil {
			return errors.Wrapf(err, "providers: boot %T", provider)
		}
	}
	r.booted = true
	return nil
}

// Booted returns true once Boot has succeeded.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }

// Container returns the built container, or nil before Build.
func (r *ProviderRegistry) Container() *Container { return r.app }
