// Package patchchain allocates patch ordinals and plans removals so that the
// visible patch numbering of each series stays gap-free.
//
// A series is the set of names that share a base, DLC and sub position and
// differ only in their trailing patch. A Chain holds every known name and is
// updated in place as patches are allocated or removed, so decisions made
// later in a run see earlier ones.
package patchchain

import (
	"slices"

	"github.com/meigma/texpak/internal/chunk"
)

// Plan is the action for removing one patch.
type Plan int

const (
	// DeleteFinal removes the file; no higher patch exists in its series.
	DeleteFinal Plan = iota

	// DeletePlaceholder replaces the file with an empty provenance-only
	// container because a higher patch still depends on the ordinal.
	DeletePlaceholder
)

func (p Plan) String() string {
	switch p {
	case DeleteFinal:
		return "delete"
	case DeletePlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Chain is the in-memory set of known names. It is not safe for concurrent use.
type Chain struct {
	names map[string]chunk.Name
}

// New returns a chain holding names.
func New(names ...chunk.Name) *Chain {
	c := &Chain{names: make(map[string]chunk.Name, len(names))}
	for _, n := range names {
		c.Register(n)
	}
	return c
}

// Register adds name to the chain.
func (c *Chain) Register(name chunk.Name) {
	c.names[name.String()] = name
}

// Remove drops name from the chain and reports whether it was present.
func (c *Chain) Remove(name chunk.Name) bool {
	key := name.String()
	if _, ok := c.names[key]; !ok {
		return false
	}
	delete(c.names, key)
	return true
}

// Contains reports whether name is in the chain.
func (c *Chain) Contains(name chunk.Name) bool {
	_, ok := c.names[name.String()]
	return ok
}

// Len returns the number of names.
func (c *Chain) Len() int {
	return len(c.names)
}

// Names returns all names in ascending order.
func (c *Chain) Names() []chunk.Name {
	out := make([]chunk.Name, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, n)
	}
	chunk.Sort(out)
	return out
}

// Series returns the names in the series of name, ascending. The unpatched
// head of the series is included when known.
func (c *Chain) Series(name chunk.Name) []chunk.Name {
	key := name.SeriesKey()
	var out []chunk.Name
	for _, n := range c.names {
		if n.SeriesKey() == key {
			out = append(out, n)
		}
	}
	chunk.Sort(out)
	return out
}

// NextPatchID returns one more than the highest patch ordinal in the series
// of name, or 1 for a series without patches.
func (c *Chain) NextPatchID(name chunk.Name) uint32 {
	var highest uint32
	for _, n := range c.Series(name) {
		highest = max(highest, n.Ordinal())
	}
	return highest + 1
}

// Allocate returns the next patch name in the series of name and registers it.
func (c *Chain) Allocate(name chunk.Name) chunk.Name {
	next := name.WithSubPatch(c.NextPatchID(name))
	c.Register(next)
	return next
}

// PlanRemoval decides how target can be removed. A patch may be deleted only
// when no other name in its series has a strictly greater ordinal.
func (c *Chain) PlanRemoval(target chunk.Name) Plan {
	ordinal := target.Ordinal()
	for _, n := range c.Series(target) {
		if n.Ordinal() > ordinal {
			return DeletePlaceholder
		}
	}
	return DeleteFinal
}

// SortDescending orders names for batch removal: highest ordinal first,
// ties broken by descending name order.
func SortDescending(names []chunk.Name) {
	slices.SortFunc(names, func(a, b chunk.Name) int {
		if a.Ordinal() != b.Ordinal() {
			if a.Ordinal() > b.Ordinal() {
				return -1
			}
			return 1
		}
		return chunk.Compare(b, a)
	})
}
