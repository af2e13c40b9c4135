package container

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ── Strategies ────────────────────────────────────────────────────────────────

// StrategyKind tells which of the four production strategies a Definition uses.
type StrategyKind string

const (
	KindConstructible StrategyKind = "constructible"
	KindFactory       StrategyKind = "factory"
	KindInstance      StrategyKind = "instance"
	KindInjectable    StrategyKind = "injectable"
)

// Strategy produces the instance of a Definition. It is one of Construct[T],
// Factory, Instance or Injectable.
type Strategy interface {
	Kind() StrategyKind
	validate() error
	produce(ctx context.Context, positional bool, deps Bag) (any, Phase, error)
}

// Injector is an existing object initialized in place with its dependencies.
type Injector interface {
	Inject(ctx context.Context, deps Bag) error
}

type constructible struct{ typ reflect.Type }

type factory struct{ fn reflect.Value }

type instance struct{ value any }

type injectable struct{ target Injector }

// Construct builds a *T: positional deps fill exported fields in declaration
// order, named deps are decoded into the struct by field name or `di` tag.
//
//	type Mailer struct {
//	    Transport *SMTP `di:"smtp"`
//	    From      string `di:"from"`
//	}
//	Definition{Strategy: container.Construct[Mailer](), Locate: container.RefMap{"smtp": container.Ref("smtp")}}
func Construct[T any]() Strategy {
	return constructible{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// Factory calls fn to produce the instance.
//
// fn may take a leading context.Context and must return (T) or (T, error).
// Positional deps become its arguments, a non-empty named bag becomes its
// single argument, an empty bag means no arguments.
func Factory(fn any) Strategy {
	return factory{fn: reflect.ValueOf(fn)}
}

// Instance uses v verbatim and ignores dependencies.
func Instance(v any) Strategy {
	return instance{value: v}
}

// Injectable hands the dependency bag to target.Inject; target is the instance.
func Injectable(target Injector) Strategy {
	return injectable{target: target}
}

func (constructible) Kind() StrategyKind { return KindConstructible }
func (factory) Kind() StrategyKind       { return KindFactory }
func (instance) Kind() StrategyKind      { return KindInstance }
func (injectable) Kind() StrategyKind    { return KindInjectable }

func (s constructible) validate() error {
	if s.typ.Kind() != reflect.Struct {
		return errors.Wrapf(ErrInvalidFactory, "constructible %s is not a struct", s.typ)
	}
	return nil
}

func (s factory) validate() error {
	if !s.fn.IsValid() || s.fn.Kind() != reflect.Func || s.fn.IsNil() {
		return errors.Wrap(ErrInvalidFactory, "factory is not a func")
	}
	t := s.fn.Type()
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return errors.Wrapf(ErrInvalidFactory, "factory %s must return (T) or (T, error)", t)
	}
	return nil
}

func (instance) validate() error { return nil }

func (s injectable) validate() error {
	if s.target == nil {
		return errors.Wrap(ErrInvalidFactory, "injectable target is nil")
	}
	return nil
}

// ── Definition ────────────────────────────────────────────────────────────────

// BeforeParams is passed to a Definition's Before hook.
type BeforeParams struct {
	Container  *Container
	Name       string
	Definition Definition
	Deps       Bag
}

// AfterParams is passed to a Definition's After hook.
type AfterParams struct {
	Instance   any
	Container  *Container
	Name       string
	Definition Definition
	Deps       Bag
}

// BeforeFunc may replace the dependency bag. Returning a nil Bag, typed nil
// included, keeps it.
type BeforeFunc func(ctx context.Context, p BeforeParams) (Bag, error)

// AfterFunc may replace the produced instance. Returning nil or a typed nil
// pointer keeps it.
type AfterFunc func(ctx context.Context, p AfterParams) (any, error)

// SubscriberParams is passed to subscribers by Emit.
type SubscriberParams struct {
	Container *Container
	Name      string
	Params    []any
}

// Subscriber reacts to an event emitted on the container.
type Subscriber func(ctx context.Context, p SubscriberParams) error

// Definition is the recipe for one named instance.
type Definition struct {
	// Strategy is required.
	Strategy Strategy

	// Deps is the literal dependency bag.
	Deps Bag

	// Locate names dependencies resolved from the same container.
	Locate Tree

	// Destructure forces positional assembly even when Deps and Locate are mappings.
	Destructure bool

	Before        BeforeFunc
	After         AfterFunc
	Subscriptions map[string]Subscriber
}

// Validate reports a missing or unusable strategy.
func (d Definition) Validate() error {
	if d.Strategy == nil {
		return ErrNoStrategy
	}
	return d.Strategy.validate()
}

// positional reports whether deps are assembled as Args.
func (d Definition) positional() bool {
	if d.Destructure {
		return true
	}
	if _, ok := d.Deps.(Args); ok {
		return true
	}
	_, ok := d.Locate.(RefList)
	return ok
}

// ── LoadDict ──────────────────────────────────────────────────────────────────

// LoadDict is an insertion-ordered set of named definitions.
//
// Adding a name twice replaces its definition but keeps its first position.
type LoadDict struct {
	defs *orderedmap.OrderedMap[string, Definition]
}

// NewLoadDict returns an empty LoadDict.
func NewLoadDict() *LoadDict {
	return &LoadDict{defs: orderedmap.New[string, Definition]()}
}

// Add stores def under name and returns d for chaining.
//
//	dict := container.NewLoadDict().
//	    Add("config", container.Definition{Strategy: container.Instance(cfg)}).
//	    Add("db", container.Definition{Strategy: container.Factory(db.Open), Locate: container.Refs("config")})
func (d *LoadDict) Add(name string, def Definition) *LoadDict {
	d.defs.Set(name, def)
	return d
}

// Get returns the definition stored under name.
func (d *LoadDict) Get(name string) (Definition, bool) {
	if d == nil {
		return Definition{}, false
	}
	return d.defs.Get(name)
}

// Has reports whether name is defined.
func (d *LoadDict) Has(name string) bool {
	_, ok := d.Get(name)
	return ok
}

// Len returns the number of definitions.
func (d *LoadDict) Len() int {
	if d == nil {
		return 0
	}
	return d.defs.Len()
}

// Names returns the defined names in insertion order.
func (d *LoadDict) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, d.defs.Len())
	for pair := d.defs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Validate checks every definition, naming the first invalid one.
func (d *LoadDict) Validate() error {
	if d == nil {
		return nil
	}
	for pair := d.defs.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "" {
			return ErrInvalidName
		}
		if err := pair.Value.Validate(); err != nil {
			return errors.Wrapf(err, "definition %q", pair.Key)
		}
	}
	return nil
}

// merge copies other's definitions into d, in other's order.
func (d *LoadDict) merge(other *LoadDict) {
	if other == nil {
		return
	}
	for pair := other.defs.Oldest(); pair != nil; pair = pair.Next() {
		d.defs.Set(pair.Key, pair.Value)
	}
}
