package container

import (
	"reflect"
	"slices"

	"github.com/samber/lo"
)

// ── Dependency bags ───────────────────────────────────────────────────────────

// Bag is a dependency bag handed to a production strategy: Args or Named.
type Bag interface {
	bag()
}

// Args is a positional dependency bag.
type Args []any

// Named is a keyed dependency bag.
type Named map[string]any

func (Args) bag()  {}
func (Named) bag() {}

// Len returns the number of dependencies in b (0 for nil).
func Len(b Bag) int {
	switch v := b.(type) {
	case Args:
		return len(v)
	case Named:
		return len(v)
	}
	return 0
}

// Values flattens b into a positional list. Named values come in key order.
func Values(b Bag) []any {
	switch v := b.(type) {
	case Args:
		return v
	case Named:
		keys := sortedKeys(v)
		return lo.Map(keys, func(k string, _ int) any { return v[k] })
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// ── Merge ─────────────────────────────────────────────────────────────────────

// Merge deep-merges two dependency structures, b layered on top of a.
//
//   - either side a sequence, a string or a func: the result is the pair []any{a, b}
//   - both sides mappings (Named or map[string]any): b's entries, with keys present
//     in both merged recursively and keys only in a carried through
//   - anything else: b
//
//	Merge(Named{"db": Named{"host": "a"}}, Named{"db": Named{"port": 1}})
//	// Named{"db": Named{"host": "a", "port": 1}}
func Merge(a, b any) any {
	if opaque(a) || opaque(b) {
		return []any{a, b}
	}
	am, aok := asNamed(a)
	bm, bok := asNamed(b)
	if !aok || !bok {
		return b
	}

	merged := make(Named, len(am)+len(bm))
	for k, v := range bm {
		merged[k] = v
	}
	for k, av := range am {
		if bv, ok := bm[k]; ok {
			merged[k] = Merge(av, bv)
		} else {
			merged[k] = av
		}
	}
	return merged
}

func opaque(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.String, reflect.Func:
		return true
	}
	return false
}

func asNamed(v any) (Named, bool) {
	switch m := v.(type) {
	case Named:
		return m, true
	case map[string]any:
		return Named(m), true
	}
	return nil, false
}
