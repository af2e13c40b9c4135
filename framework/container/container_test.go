package container_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbili/di-why/framework/container"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newContainer(t *testing.T, dict *container.LoadDict, opts ...container.Option) *container.Container {
	t.Helper()
	c, err := container.New(append([]container.Option{container.WithLoadDict(dict)}, opts...)...)
	require.NoError(t, err)
	return c
}

type counter struct{ n atomic.Int32 }

func (c *counter) count() int { return int(c.n.Load()) }

type service struct {
	ID int
}

type pair struct {
	A any
	B any
}

// ── Get / Load ───────────────────────────────────────────────────────────────

func TestGet_InstanceAndFactoryChain(t *testing.T) {
	var calls counter
	dict := container.NewLoadDict().
		Add("a", container.Definition{Strategy: container.Instance(1)}).
		Add("b", container.Definition{
			Strategy: container.Factory(func(deps container.Named) int {
				calls.n.Add(1)
				return deps["a"].(int) + 1
			}),
			Locate: container.RefMap{"a": container.Ref("a")},
		})
	c := newContainer(t, dict)
	ctx := context.Background()

	b, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, b)

	a, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, a)

	b, err = c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, calls.count())
}

func TestGet_ConcurrentCallsConstructOnce(t *testing.T) {
	var calls counter
	release := make(chan struct{})
	dict := container.NewLoadDict().Add("svc", container.Definition{
		Strategy: container.Factory(func() *service {
			calls.n.Add(1)
			<-release
			return &service{ID: 7}
		}),
	})
	c := newContainer(t, dict)

	const k = 32
	results := make([]any, k)
	var wg sync.WaitGroup
	for i := range k {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "svc")
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls.count())
	first := results[0].(*service)
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestGet_UnregisteredName(t *testing.T) {
	c := newContainer(t, container.NewLoadDict().Add("known", container.Definition{Strategy: container.Instance(1)}))

	_, err := c.Get(context.Background(), "missing")
	require.ErrorIs(t, err, container.ErrNotRegistered)
	assert.Contains(t, err.Error(), "known")
}

func TestGet_EmptyName(t *testing.T) {
	c := newContainer(t, nil)

	_, err := c.Get(context.Background(), "")
	assert.ErrorIs(t, err, container.ErrInvalidName)
}

func TestGet_SetInstanceWithoutDefinition(t *testing.T) {
	c := newContainer(t, nil)
	require.NoError(t, c.Set("manual", "value"))

	v, err := c.Get(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.True(t, c.Has("manual"))
}

func TestLoad_IsIdempotent(t *testing.T) {
	var calls counter
	dict := container.NewLoadDict().Add("svc", container.Definition{
		Strategy: container.Factory(func() *service {
			calls.n.Add(1)
			return &service{}
		}),
	})
	c := newContainer(t, dict)
	ctx := context.Background()

	first, err := c.Load(ctx, "svc")
	require.NoError(t, err)
	second, err := c.Load(ctx, "svc")
	require.NoError(t, err)
	got, err := c.Get(ctx, "svc")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, got)
	assert.Equal(t, 1, calls.count())
}

func TestLoad_FailureIsCached(t *testing.T) {
	var calls counter
	boom := assert.AnError
	dict := container.NewLoadDict().Add("flaky", container.Definition{
		Strategy: container.Factory(func() (*service, error) {
			calls.n.Add(1)
			return nil, boom
		}),
	})
	c := newContainer(t, dict)
	ctx := context.Background()

	_, err := c.Get(ctx, "flaky")
	require.ErrorIs(t, err, boom)

	var loadErr *container.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "flaky", loadErr.Name)
	assert.Equal(t, container.PhaseFactory, loadErr.Phase)

	_, err = c.Get(ctx, "flaky")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls.count())
	assert.False(t, c.Has("flaky"))
}

func TestLoad_PanicIsRecovered(t *testing.T) {
	dict := container.NewLoadDict().Add("bad", container.Definition{
		Strategy: container.Factory(func() int { panic("kaboom") }),
	})
	c := newContainer(t, dict)

	_, err := c.Get(context.Background(), "bad")
	require.ErrorIs(t, err, container.ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestLoad_CycleEndsWithContext(t *testing.T) {
	dict := container.NewLoadDict().
		Add("a", container.Definition{Strategy: container.Construct[pair](), Locate: container.Refs("b")}).
		Add("b", container.Definition{Strategy: container.Construct[pair](), Locate: container.Refs("a")})
	c := newContainer(t, dict)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), `waiting for "a"`)
	assert.False(t, c.Has("a"))
	assert.False(t, c.Has("b"))
}

func TestLoad_WaiterStopsOnContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	dict := container.NewLoadDict().Add("slow", container.Definition{
		Strategy: container.Factory(func() int {
			close(started)
			<-release
			return 42
		}),
	})
	c := newContainer(t, dict)

	go func() { _, _ = c.Get(context.Background(), "slow") }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "slow")
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := c.Get(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLoad_CancelledCallerDoesNotFailDependents(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	dict := container.NewLoadDict().
		Add("slow", container.Definition{
			Strategy: container.Factory(func() int {
				close(started)
				<-release
				return 42
			}),
		}).
		Add("a", container.Definition{
			Strategy: container.Factory(func(v int) int { return v }),
			Locate:   container.Refs("slow"),
		})
	c := newContainer(t, dict)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "a")
		errs <- err
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	close(release)
	v, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, c.Has("slow"))
}

func TestLoad_FactoryContextOutlivesCaller(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	dict := container.NewLoadDict().Add("svc", container.Definition{
		Strategy: container.Factory(func(ctx context.Context) (string, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "ready", nil
		}),
	})
	c := newContainer(t, dict)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "svc")
		errs <- err
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	close(release)
	v, err := c.Get(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
}

// ── Registration ─────────────────────────────────────────────────────────────

func TestNew_RejectsDefinitionWithoutStrategy(t *testing.T) {
	dict := container.NewLoadDict().Add("x", container.Definition{})

	_, err := container.New(container.WithLoadDict(dict))
	require.ErrorIs(t, err, container.ErrNoStrategy)
	assert.Contains(t, err.Error(), "no valid instantiation method")
	assert.Contains(t, err.Error(), `"x"`)
}

func TestNew_RejectsInvalidFactory(t *testing.T) {
	tests := []struct {
		name string
		fn   any
	}{
		{"not a func", 42},
		{"no results", func() {}},
		{"second result not error", func() (int, int) { return 0, 0 }},
		{"nil func", (func() int)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := container.NewLoadDict().Add("f", container.Definition{Strategy: container.Factory(tt.fn)})
			_, err := container.New(container.WithLoadDict(dict))
			assert.ErrorIs(t, err, container.ErrInvalidFactory)
		})
	}
}

func TestNew_RejectsNonStructConstructible(t *testing.T) {
	dict := container.NewLoadDict().Add("n", container.Definition{Strategy: container.Construct[int]()})

	_, err := container.New(container.WithLoadDict(dict))
	assert.ErrorIs(t, err, container.ErrInvalidFactory)
}

func TestAddToLoadDict_ReplacesAndKeepsOrder(t *testing.T) {
	c := newContainer(t, container.NewLoadDict().
		Add("a", container.Definition{Strategy: container.Instance(1)}).
		Add("b", container.Definition{Strategy: container.Instance(2)}))

	require.NoError(t, c.AddToLoadDict(container.NewLoadDict().
		Add("c", container.Definition{Strategy: container.Instance(3)}).
		Add("a", container.Definition{Strategy: container.Instance(10)})))

	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
	v, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestAddToLoadDict_RejectsWithoutStrategy(t *testing.T) {
	c := newContainer(t, nil)

	err := c.AddToLoadDict(container.NewLoadDict().Add("x", container.Definition{}))
	assert.ErrorIs(t, err, container.ErrNoStrategy)
	assert.Empty(t, c.Names())
}

func TestAddToLoadDict_FailsWhileLoading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := newContainer(t, container.NewLoadDict().Add("slow", container.Definition{
		Strategy: container.Factory(func() int {
			close(started)
			<-release
			return 1
		}),
	}))

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadAll(context.Background(), nil)
		done <- err
	}()
	<-started

	err := c.AddToLoadDict(container.NewLoadDict().Add("late", container.Definition{Strategy: container.Instance(1)}))
	assert.ErrorIs(t, err, container.ErrLoadInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, c.AddToLoadDict(container.NewLoadDict().Add("late", container.Definition{Strategy: container.Instance(1)})))
}

func TestSet_ReplacesInstance(t *testing.T) {
	c := newContainer(t, container.NewLoadDict().Add("a", container.Definition{Strategy: container.Instance(1)}))
	ctx := context.Background()

	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set("a", 99))

	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestSet_EmptyName(t *testing.T) {
	c := newContainer(t, nil)
	assert.ErrorIs(t, c.Set("", 1), container.ErrInvalidName)
}

// ── LoadAll ──────────────────────────────────────────────────────────────────

func TestLoadAll_LoadsInRegistrationOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) container.Strategy {
		return container.Factory(func() string {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return name
		})
	}
	c := newContainer(t, container.NewLoadDict().
		Add("z", container.Definition{Strategy: record("z")}).
		Add("a", container.Definition{Strategy: record("a")}))

	inProgress, err := c.LoadAll(context.Background(), container.NewLoadDict().
		Add("m", container.Definition{Strategy: record("m")}))
	require.NoError(t, err)
	assert.False(t, inProgress)

	assert.Equal(t, []string{"z", "a", "m"}, order)
	assert.Equal(t, []string{"a", "m", "z"}, c.Loaded())
	assert.False(t, c.Loading())
}

func TestLoadAll_ConcurrentCallReportsInProgress(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := newContainer(t, container.NewLoadDict().Add("slow", container.Definition{
		Strategy: container.Factory(func() int {
			close(started)
			<-release
			return 1
		}),
	}))

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadAll(context.Background(), nil)
		done <- err
	}()
	<-started
	assert.True(t, c.Loading())

	inProgress, err := c.LoadAll(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, inProgress)

	inProgress, err = c.LoadAll(context.Background(), container.NewLoadDict().
		Add("extra", container.Definition{Strategy: container.Instance(1)}))
	assert.ErrorIs(t, err, container.ErrNotSupported)
	assert.True(t, inProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Loading())
}

func TestLoadAll_StopsAtFirstFailureAndResetsLoading(t *testing.T) {
	var later counter
	c := newContainer(t, container.NewLoadDict().
		Add("bad", container.Definition{Strategy: container.Factory(func() (int, error) { return 0, assert.AnError })}).
		Add("later", container.Definition{Strategy: container.Factory(func() int { later.n.Add(1); return 1 })}))

	_, err := c.LoadAll(context.Background(), nil)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, later.count())
	assert.False(t, c.Loading())
}

func TestLoadAll_RejectsExtraWithoutStrategy(t *testing.T) {
	c := newContainer(t, nil)

	_, err := c.LoadAll(context.Background(), container.NewLoadDict().Add("x", container.Definition{}))
	require.ErrorIs(t, err, container.ErrNoStrategy)
	assert.False(t, c.Loading())
}

// ── GetAll / Resolve ─────────────────────────────────────────────────────────

func TestGetAll_PreservesOrder(t *testing.T) {
	c := newContainer(t, container.NewLoadDict().
		Add("one", container.Definition{Strategy: container.Instance(1)}).
		Add("two", container.Definition{Strategy: container.Factory(func() int { return 2 })}))

	got, err := c.GetAll(context.Background(), "two", "one", "two")
	require.NoError(t, err)
	assert.Equal(t, []any{2, 1, 2}, got)
}

func TestGetAll_ReturnsFailure(t *testing.T) {
	c := newContainer(t, container.NewLoadDict().Add("one", container.Definition{Strategy: container.Instance(1)}))

	_, err := c.GetAll(context.Background(), "one", "missing")
	assert.ErrorIs(t, err, container.ErrNotRegistered)
}

func TestResolve_Typed(t *testing.T) {
	svc := &service{ID: 3}
	c := newContainer(t, container.NewLoadDict().Add("svc", container.Definition{Strategy: container.Instance(svc)}))
	ctx := context.Background()

	got, err := container.Resolve[*service](ctx, c, "svc")
	require.NoError(t, err)
	assert.Same(t, svc, got)

	_, err = container.Resolve[string](ctx, c, "svc")
	assert.ErrorIs(t, err, container.ErrTypeMismatch)

	assert.Same(t, svc, container.MustResolve[*service](ctx, c, "svc"))
	assert.Panics(t, func() { container.MustResolve[string](ctx, c, "svc") })
}

// ── Introspection ────────────────────────────────────────────────────────────

func TestContainer_Definition(t *testing.T) {
	c := newContainer(t, container.NewLoadDict().Add("svc", container.Definition{Strategy: container.Construct[service]()}))

	def, ok := c.Definition("svc")
	require.True(t, ok)
	assert.Equal(t, container.KindConstructible, def.Strategy.Kind())

	_, ok = c.Definition("nope")
	assert.False(t, ok)
}

func TestContainer_IDsAreUnique(t *testing.T) {
	a := newContainer(t, nil)
	b := newContainer(t, nil)
	assert.NotEqual(t, a.ID(), b.ID())
}
