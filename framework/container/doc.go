// Package container provides a lazy dependency injection container whose
// instances are constructed on first use, at most once each.
//
// # Overview
//
// A container holds a registry of named Definitions (a LoadDict). A Definition
// says how to produce its instance (its Strategy), which literal dependencies
// it takes (Deps) and which other names it needs from the same container
// (Locate). Nothing is built until it is asked for.
//
// # Container Lifecycle
//
//  1. Describe: dict := container.NewLoadDict().Add(...)
//  2. Create:   c, err := container.New(container.WithLoadDict(dict))
//  3. Resolve:  v, err := c.Get(ctx, "name"), or c.LoadAll(ctx, nil) eagerly
//  4. Notify:   c.Emit(ctx, "shutdown")
//
// # Strategies
//
//	// Build a *Mailer, filling its fields from the dependencies
//	container.Construct[Mailer]()
//
//	// Call a function; a leading context.Context is passed through
//	container.Factory(func(ctx context.Context, cfg *Config) (*sql.DB, error) { ... })
//
//	// Use a value verbatim
//	container.Instance(cfg)
//
//	// Initialize an existing object in place
//	container.Injectable(server)
//
// # Dependencies
//
// Positional dependencies (Args, a RefList locate tree, or Destructure) are
// passed as arguments, located ones first. Named dependencies (Named, RefMap)
// are deep-merged with Merge, literal values on top, and passed as a single
// bag argument.
//
//	dict.Add("repo", container.Definition{
//	    Strategy: container.Factory(NewRepo),
//	    Locate:   container.RefMap{"db": container.Ref("db"), "caches": container.Refs("l1", "l2")},
//	    Deps:     container.Named{"table": "users"},
//	})
//
// # Hooks
//
// Before may replace the dependency bag, After may replace the instance. Both
// run inside the single construction of their name.
//
// # Concurrency
//
// Every method is safe for concurrent use. Concurrent Gets of one name share
// one construction; failures are cached like successes. Dependency cycles are
// not detected: bound the wait with a context deadline.
package container
