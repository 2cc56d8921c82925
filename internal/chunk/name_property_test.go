package chunk

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genName produces well-formed names: a base, then an optional DLC, an
// optional sub and an optional trailing patch.
func genName() gopter.Gen {
	return gopter.CombineGens(
		gen.UInt32Range(0, 2000),
		gen.Bool(),
		gen.Identifier(),
		gen.Bool(),
		gen.UInt32Range(0, 2000),
		gen.Bool(),
		gen.UInt32Range(0, 2000),
	).Map(func(v []any) Name {
		comps := []Component{{Kind: KindBase, ID: v[0].(uint32)}}
		if v[1].(bool) {
			comps = append(comps, Component{Kind: KindDLC, DLC: v[2].(string)})
		}
		if v[3].(bool) {
			comps = append(comps, Component{Kind: KindSub, ID: v[4].(uint32)})
		}
		n := Name{components: comps}
		if v[5].(bool) {
			n = n.WithSubPatch(v[6].(uint32))
		}
		return n
	})
}

func TestName_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("parse inverts format", prop.ForAll(
		func(n Name) bool {
			text := n.String()
			parsed, err := Parse(text)
			if err != nil {
				return false
			}
			return parsed.Equal(n) && parsed.String() == text
		},
		genName(),
	))

	properties.Property("exactly one of a<b, b<a for distinct names", prop.ForAll(
		func(a, b Name) bool {
			if a.String() == b.String() {
				return Compare(a, b) == 0 && Compare(b, a) == 0
			}
			return a.Less(b) != b.Less(a)
		},
		genName(),
		genName(),
	))

	properties.Property("order is transitive", prop.ForAll(
		func(a, b, c Name) bool {
			if a.Less(b) && b.Less(c) {
				return a.Less(c)
			}
			return true
		},
		genName(),
		genName(),
		genName(),
	))

	properties.Property("sorted lists are pairwise ordered", prop.ForAll(
		func(names []Name) bool {
			Sort(names)
			for i := 1; i < len(names); i++ {
				if names[i].Less(names[i-1]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genName()),
	))

	properties.TestingRun(t)
}
