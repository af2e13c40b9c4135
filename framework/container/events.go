package container

import (
	"context"

	"github.com/pkg/errors"
)

// ── Events ────────────────────────────────────────────────────────────────────

type subscription struct {
	name string
	fn   Subscriber
}

// Emit calls every definition's subscriber for event, in registration order,
// whether or not the definition has been constructed. The first failing
// subscriber stops the emission, and so does the end of ctx.
//
//	Definition{..., Subscriptions: map[string]container.Subscriber{
//	    "shutdown": func(ctx context.Context, p container.SubscriberParams) error { ... },
//	}}
//	err := c.Emit(ctx, "shutdown")
func (c *Container) Emit(ctx context.Context, event string, params ...any) error {
	c.mu.Lock()
	var subs []subscription
	for _, name := range c.loadDict.Names() {
		def, _ := c.loadDict.Get(name)
		fn, ok := def.Subscriptions[event]
		if !ok {
			continue
		}
		if fn == nil {
			c.mu.Unlock()
			return errors.Wrapf(ErrInvalidSubscriber, "%q on event %q", name, event)
		}
		subs = append(subs, subscription{name: name, fn: fn})
	}
	c.mu.Unlock()

	c.logger.Debug("container: emit", "event", event, "subscribers", len(subs))
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			c.logger.Debug("container: emit interrupted", "event", event, "name", sub.name, "error", err)
			return errors.Wrapf(err, "container: event %q before subscriber %q", event, sub.name)
		}
		if err := c.notify(ctx, sub, params); err != nil {
			c.logger.Debug("container: subscriber failed", "event", event, "name", sub.name, "error", err)
			return errors.Wrapf(err, "container: event %q subscriber %q", event, sub.name)
		}
	}
	return nil
}

func (c *Container) notify(ctx context.Context, sub subscription, params []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrPanic, "%v", r)
		}
	}()
	return sub.fn(ctx, SubscriberParams{Container: c, Name: sub.name, Params: params})
}
