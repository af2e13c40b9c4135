package manifest

import (
	"github.com/samber/lo"

	"github.com/gbili/di-why/framework/container"
)

// Entry describes one definition of a LoadDict.
type Entry struct {
	Name        string
	Strategy    container.StrategyKind
	Refs        []string
	Unresolved  []string
	Subscribes  []string
	Destructure bool
}

// Inspect lists the definitions of dict in order. Unresolved holds the
// located names that dict does not define.
func Inspect(dict *container.LoadDict) []Entry {
	names := dict.Names()
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		def, _ := dict.Get(name)
		e := Entry{Name: name, Destructure: def.Destructure}
		if def.Strategy != nil {
			e.Strategy = def.Strategy.Kind()
		}
		if def.Locate != nil {
			e.Refs = lo.Uniq(container.RefNames(def.Locate))
			e.Unresolved = lo.Reject(e.Refs, func(ref string, _ int) bool { return dict.Has(ref) })
		}
		e.Subscribes = lo.Keys(def.Subscriptions)
		entries = append(entries, e)
	}
	return entries
}

// Unresolved reports whether any entry locates an undefined name.
func Unresolved(entries []Entry) bool {
	return lo.SomeBy(entries, func(e Entry) bool { return len(e.Unresolved) > 0 })
}
