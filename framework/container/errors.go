package container

import (
	"errors"
	"strconv"
)

// ── Sentinel errors ───────────────────────────────────────────────────────────

var (
	// ErrNotRegistered is returned when a name has no definition in the registry.
	ErrNotRegistered = errors.New("container: name not registered")

	// ErrNoStrategy is returned for a definition without a production strategy.
	ErrNoStrategy = errors.New("container: no valid instantiation method")

	// ErrInvalidFactory is returned when a factory is not a usable func.
	ErrInvalidFactory = errors.New("container: invalid factory")

	// ErrInvalidName is returned for an empty name.
	ErrInvalidName = errors.New("container: can only reference definitions by non-empty names")

	// ErrLoadInProgress is returned when the registry is mutated during LoadAll.
	ErrLoadInProgress = errors.New("container: cannot add to load dict while loading")

	// ErrNotSupported is returned when LoadAll receives new definitions while
	// another LoadAll is running.
	ErrNotSupported = errors.New("container: adding definitions while loading is not supported")

	// ErrOutOfRange is returned by Containers lookups with a bad position.
	ErrOutOfRange = errors.New("container: out of range")

	// ErrInvalidSubscriber is returned when a subscription key maps to a nil callback.
	ErrInvalidSubscriber = errors.New("container: subscriber must be callable")

	// ErrArity is returned when a positional bag does not fit a call signature.
	ErrArity = errors.New("container: dependency count does not match signature")

	// ErrArgumentType is returned when a dependency cannot be passed as a parameter.
	ErrArgumentType = errors.New("container: dependency type does not match parameter")

	// ErrPanic wraps a panic raised by a strategy or hook.
	ErrPanic = errors.New("container: panic during load")

	// ErrTypeMismatch is returned by Resolve when the instance is not a T.
	ErrTypeMismatch = errors.New("container: resolved instance has unexpected type")
)

// ── Typed errors ──────────────────────────────────────────────────────────────

// Phase names the step of a load that failed.
type Phase string

const (
	PhaseLocate    Phase = "locate"
	PhaseBefore    Phase = "before"
	PhaseInject    Phase = "inject"
	PhaseConstruct Phase = "construct"
	PhaseFactory   Phase = "factory"
	PhaseAfter     Phase = "after"
)

// LoadError reports which name and which phase of its construction failed.
type LoadError struct {
	Name  string
	Phase Phase
	Err   error
}

func (e *LoadError) Error() string {
	return "container: load " + strconv.Quote(e.Name) + " failed in " + string(e.Phase) + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// LocateError reports the path of the locate tree leaf that failed to resolve.
//
// Path is dotted for mapping keys and indexed for sequences, e.g. "stores.primary"
// or "[1].db".
type LocateError struct {
	Path string
	Name string
	Err  error
}

func (e *LocateError) Error() string {
	return "container: locate " + strconv.Quote(e.Name) + " at " + strconv.Quote(e.Path) + ": " + e.Err.Error()
}

func (e *LocateError) Unwrap() error { return e.Err }
