package manifest

import (
	"errors"

	"github.com/gbili/di-why/framework/container"
)

var (
	// ErrUnknownStrategy is returned when a service uses a key missing from the Catalog.
	ErrUnknownStrategy = errors.New("manifest: unknown strategy")

	// ErrUnknownHook is returned when a before, after or subscribe entry has no
	// callback in the Catalog.
	ErrUnknownHook = errors.New("manifest: unknown hook")

	// ErrMalformed is returned for documents that do not have the manifest shape.
	ErrMalformed = errors.New("manifest: malformed document")
)

// Catalog holds the Go values a manifest refers to by key: strategies for
// `use`, hooks for `before`/`after`, subscribers for `subscribe`.
//
//	catalog := manifest.NewCatalog().
//	    Strategy("mailer", container.Construct[Mailer]()).
//	    Subscriber("mailer.shutdown", closeMailer)
type Catalog struct {
	strategies  map[string]container.Strategy
	before      map[string]container.BeforeFunc
	after       map[string]container.AfterFunc
	subscribers map[string]container.Subscriber
}

func NewCatalog() *Catalog {
	return &Catalog{
		strategies:  make(map[string]container.Strategy),
		before:      make(map[string]container.BeforeFunc),
		after:       make(map[string]container.AfterFunc),
		subscribers: make(map[string]container.Subscriber),
	}
}

func (c *Catalog) Strategy(key string, s container.Strategy) *Catalog {
	c.strategies[key] = s
	return c
}

func (c *Catalog) Before(key string, fn container.BeforeFunc) *Catalog {
	c.before[key] = fn
	return c
}

func (c *Catalog) After(key string, fn container.AfterFunc) *Catalog {
	c.after[key] = fn
	return c
}

// Subscriber registers fn under "<service>.<event>".
func (c *Catalog) Subscriber(key string, fn container.Subscriber) *Catalog {
	c.subscribers[key] = fn
	return c
}
