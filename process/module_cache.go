package process

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// ModuleCache holds a snapshot of resolved modules keyed by the name they were requested with.
//
// Refresh builds a complete new snapshot before publishing it, so concurrent
// readers always see either the old or the new set, never a mix.
type ModuleCache struct {
	snap atomic.Pointer[map[string]Module]
}

func NewModuleCache() *ModuleCache {
	c := &ModuleCache{}
	empty := map[string]Module{}
	c.snap.Store(&empty)
	return c
}

// Refresh resolves every name through resolver and swaps the snapshot.
// On error the previous snapshot stays in place.
func (c *ModuleCache) Refresh(resolver ModuleResolver, names ...string) error {
	next := make(map[string]Module, len(names))
	for _, name := range names {
		m, err := resolver.ResolveModule(name)
		if err != nil {
			return fmt.Errorf("resolve module %q: %w", name, err)
		}
		next[name] = m
	}

	c.snap.Store(&next)
	return nil
}

// Lookup returns the module resolved for name, or ErrModuleNotFound.
func (c *ModuleCache) Lookup(name string) (Module, error) {
	m, ok := (*c.snap.Load())[name]
	if !ok {
		return Module{}, fmt.Errorf("%q not in cache: %w", name, ErrModuleNotFound)
	}
	return m, nil
}

// Snapshot returns a copy of the current entries sorted by base address.
func (c *ModuleCache) Snapshot() []Module {
	cur := *c.snap.Load()
	out := make([]Module, 0, len(cur))
	for _, m := range cur {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BaseAddress < out[j].BaseAddress
	})
	return out
}

func (c *ModuleCache) Len() int {
	return len(*c.snap.Load())
}
