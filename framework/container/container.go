package container

import (
	"context"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container builds named instances lazily from a registry of definitions.
//
// Each name is constructed at most once. Concurrent callers asking for a name
// whose construction is running wait for that construction and share its
// outcome, success or failure.
type Container struct {
	id      uuid.UUID
	logger  Logger
	tracer  trace.Tracer
	metrics *metrics
	set     *Containers

	mu sync.Mutex

	// name → definition, in registration order
	loadDict *LoadDict

	// name → constructed or Set instance
	instances map[string]any

	// name → construction started by Load
	pending map[string]*pending

	// a LoadAll is running
	loading bool
}

// pending is the shared outcome of one construction. done is closed once
// value and err are final.
type pending struct {
	done  chan struct{}
	value any
	err   error
}

// New creates a container. Every definition given through WithLoadDict is
// validated up front; a definition without a strategy fails with ErrNoStrategy.
//
//	dict := container.NewLoadDict().
//	    Add("config", container.Definition{Strategy: container.Instance(cfg)}).
//	    Add("db", container.Definition{Strategy: container.Factory(db.Open), Locate: container.Refs("config")})
//	c, err := container.New(container.WithLoadDict(dict), container.WithLogger(logger))
func New(opts ...Option) (*Container, error) {
	c := &Container{
		id:        uuid.New(),
		logger:    nopLogger{},
		tracer:    defaultTracer(),
		loadDict:  NewLoadDict(),
		instances: make(map[string]any),
		pending:   make(map[string]*pending),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.loadDict.Validate(); err != nil {
		return nil, err
	}
	if c.set != nil {
		c.set.Track(c)
	}
	c.logger.Debug("container: created", "id", c.id, "definitions", c.loadDict.Len())
	return c, nil
}

// ID returns the identifier assigned at creation.
func (c *Container) ID() uuid.UUID { return c.id }

// ── Registration ──────────────────────────────────────────────────────────────

// AddToLoadDict merges dict into the registry. Existing names are replaced.
// It fails with ErrLoadInProgress while LoadAll is running.
func (c *Container) AddToLoadDict(dict *LoadDict) error {
	if err := dict.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return ErrLoadInProgress
	}
	c.loadDict.merge(dict)
	c.logger.Debug("container: definitions added", "names", dict.Names())
	return nil
}

// Set stores v under name directly, bypassing construction. A name being
// constructed will be overwritten by the construction result when it settles.
func (c *Container) Set(name string, v any) error {
	if name == "" {
		return ErrInvalidName
	}
	c.setInstance(name, v)
	return nil
}

func (c *Container) setInstance(name string, v any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[name]; ok {
		c.logger.Debug("container: replacing existing instance", "name", name)
	}
	c.instances[name] = v
	return v
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the instance for name, constructing it on first use.
//
//	db, err := c.Get(ctx, "db")
func (c *Container) Get(ctx context.Context, name string) (any, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	c.mu.Lock()
	inst, ok := c.instances[name]
	c.mu.Unlock()
	if ok {
		return inst, nil
	}

	inst, err := c.Load(ctx, name)
	if err != nil {
		c.logger.Debug("container: get failed", "name", name, "error", err)
		return nil, err
	}
	return inst, nil
}

// Load constructs name if it has not been constructed yet and returns the
// instance. It shares the single construction with Get and other Load calls.
// A failed construction is not retried: later calls report the same error.
//
// The construction is detached from ctx cancellation. A caller whose ctx ends
// stops waiting and gets ctx's error; the construction keeps running and its
// outcome is memoized for the next caller.
func (c *Container) Load(ctx context.Context, name string) (any, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	c.mu.Lock()
	if inst, ok := c.instances[name]; ok {
		c.mu.Unlock()
		c.logger.Debug("container: already loaded", "name", name)
		return inst, nil
	}
	p, started := c.pending[name]
	if !started {
		def, ok := c.loadDict.Get(name)
		if !ok {
			names := c.loadDict.Names()
			c.mu.Unlock()
			return nil, errors.Wrapf(ErrNotRegistered, "%q (registered: %s)", name, strings.Join(names, ", "))
		}
		p = &pending{done: make(chan struct{})}
		c.pending[name] = p
		c.mu.Unlock()
		go c.run(context.WithoutCancel(ctx), name, def, p)
	} else {
		c.mu.Unlock()
		c.logger.Debug("container: waiting for load in progress", "name", name)
	}

	select {
	case <-p.done:
		return p.value, p.err
	default:
	}
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "container: waiting for %q", name)
	}
}

// LoadAll merges extra into the registry, then constructs every registered
// name in registration order, stopping at the first failure.
//
// While another LoadAll runs it returns inProgress=true at once, with
// ErrNotSupported if extra is non-nil.
func (c *Container) LoadAll(ctx context.Context, extra *LoadDict) (inProgress bool, err error) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		if extra != nil {
			return true, ErrNotSupported
		}
		c.logger.Debug("container: loadAll already in progress")
		return true, nil
	}
	if err := extra.Validate(); err != nil {
		c.mu.Unlock()
		return false, err
	}
	c.loading = true
	c.loadDict.merge(extra)
	names := c.loadDict.Names()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	c.logger.Debug("container: loadAll begin", "names", names)
	for _, name := range names {
		if _, err := c.Get(ctx, name); err != nil {
			c.logger.Debug("container: loadAll aborted", "name", name, "error", err)
			return false, err
		}
	}
	c.logger.Debug("container: loadAll end")
	return false, nil
}

// GetAll resolves names concurrently and returns the instances in the same order.
// One failure does not cancel the other constructions.
func (c *Container) GetAll(ctx context.Context, names ...string) ([]any, error) {
	out := make([]any, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			inst, err := c.Get(ctx, name)
			if err != nil {
				return err
			}
			out[i] = inst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Construction ──────────────────────────────────────────────────────────────

// run constructs name and settles p. Panics are turned into ErrPanic so that
// waiters are always released.
func (c *Container) run(ctx context.Context, name string, def Definition, p *pending) {
	ctx, span := c.tracer.Start(ctx, "container.load", trace.WithAttributes(
		attribute.String("di.name", name),
		attribute.String("di.container", c.id.String()),
	))
	start := time.Now()
	c.metrics.started()

	defer func() {
		if r := recover(); r != nil {
			p.value, p.err = nil, errors.Wrapf(ErrPanic, "%q: %v", name, r)
			c.logger.Debug("container: load panicked", "name", name, "panic", r)
		}
		if p.err != nil {
			span.RecordError(p.err)
			span.SetStatus(codes.Error, p.err.Error())
		}
		span.End()
		c.metrics.finished(name, start, p.err)
		close(p.done)
	}()

	p.value, p.err = c.construct(ctx, name, def)
}

func (c *Container) construct(ctx context.Context, name string, def Definition) (any, error) {
	if def.Strategy == nil {
		return nil, errors.Wrapf(ErrNoStrategy, "%q", name)
	}
	c.logger.Debug("container: loading", "name", name, "strategy", def.Strategy.Kind())

	positional := def.positional()

	var located Bag
	if def.Locate != nil {
		var err error
		if located, err = c.Locate(ctx, def.Locate); err != nil {
			return nil, c.fail(name, PhaseLocate, err)
		}
	}
	deps := assemble(positional, located, def.Deps)

	if def.Before != nil {
		replaced, err := def.Before(ctx, BeforeParams{Container: c, Name: name, Definition: def, Deps: deps})
		if err != nil {
			return nil, c.fail(name, PhaseBefore, err)
		}
		if !isNil(replaced) {
			deps = replaced
		} else {
			c.logger.Debug("container: before hook kept deps", "name", name)
		}
	}

	c.logger.Debug("container: producing", "name", name, "positional", positional, "deps", Len(deps))
	inst, phase, err := def.Strategy.produce(ctx, positional, deps)
	if err != nil {
		return nil, c.fail(name, phase, err)
	}

	if def.After != nil {
		replaced, err := def.After(ctx, AfterParams{Instance: inst, Container: c, Name: name, Definition: def, Deps: deps})
		if err != nil {
			return nil, c.fail(name, PhaseAfter, err)
		}
		if !isNil(replaced) {
			inst = replaced
		}
	}

	c.logger.Debug("container: loaded", "name", name)
	return c.setInstance(name, inst), nil
}

func (c *Container) fail(name string, phase Phase, err error) error {
	c.logger.Debug("container: load failed", "name", name, "phase", phase, "error", err)
	return &LoadError{Name: name, Phase: phase, Err: err}
}

// assemble combines located deps with literal deps. Positional bags are
// concatenated, located first; named bags are deep-merged, literal on top.
func assemble(positional bool, located, provided Bag) Bag {
	if positional {
		args := make(Args, 0, Len(located)+Len(provided))
		args = append(args, Values(located)...)
		return append(args, Values(provided)...)
	}
	base, top := Named{}, Named{}
	if n, ok := located.(Named); ok {
		base = n
	}
	if n, ok := provided.(Named); ok {
		top = n
	}
	if merged, ok := Merge(base, top).(Named); ok {
		return merged
	}
	return top
}

// isNil reports whether v is nil or a typed nil (Named(nil), a nil pointer).
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has reports whether name currently has an instance.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.instances[name]
	return ok
}

// Names returns the registered names in registration order.
func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadDict.Names()
}

// Loaded returns the names that have an instance, sorted.
func (c *Container) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.instances))
	for name := range c.instances {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definition returns the definition registered under name.
func (c *Container) Definition(name string) (Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadDict.Get(name)
}

// Loading reports whether a LoadAll is running.
func (c *Container) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	// Instead of: v, err := c.Get(ctx, "db"); db := v.(*sql.DB)
//	// Write:      db, err := container.Resolve[*sql.DB](ctx, c, "db")
func Resolve[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T
	inst, err := c.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, errors.Wrapf(ErrTypeMismatch, "%q resolved to %T, want %s", name, inst, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error. Meant for wiring code
// where a missing dependency is a programming error.
func MustResolve[T any](ctx context.Context, c *Container, name string) T {
	typed, err := Resolve[T](ctx, c, name)
	if err != nil {
		panic(err)
	}
	return typed
}
