package patchchain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/texpak/internal/chunk"
)

func names(texts ...string) []chunk.Name {
	out := make([]chunk.Name, len(texts))
	for i, t := range texts {
		out[i] = chunk.MustParse(t)
	}
	return out
}

func TestNextPatchID(t *testing.T) {
	t.Parallel()

	sub := chunk.NewSub(0, 0)

	assert.Equal(t, uint32(1), New().NextPatchID(sub), "empty series")
	assert.Equal(t, uint32(1), New(sub).NextPatchID(sub), "series without patches")

	series := names(
		"re_chunk_000.pak.sub_000.pak",
		"re_chunk_000.pak.sub_000.pak.patch_001.pak",
		"re_chunk_000.pak.sub_000.pak.patch_002.pak",
		"re_chunk_000.pak.sub_000.pak.patch_004.pak",
		// Other series must not contribute.
		"re_chunk_000.pak.sub_001.pak.patch_009.pak",
		"re_chunk_000.pak.patch_007.pak",
	)
	for range 10 {
		rand.Shuffle(len(series), func(i, j int) { series[i], series[j] = series[j], series[i] })
		assert.Equal(t, uint32(5), New(series...).NextPatchID(sub))
	}

	// Any member of the series yields the same answer.
	patched := chunk.MustParse("re_chunk_000.pak.sub_000.pak.patch_001.pak")
	assert.Equal(t, uint32(5), New(series...).NextPatchID(patched))

	base := chunk.New(0)
	assert.Equal(t, uint32(8), New(series...).NextPatchID(base))
}

func TestAllocate(t *testing.T) {
	t.Parallel()

	sub := chunk.NewSub(3, 1)
	c := New(sub)

	first := c.Allocate(sub)
	second := c.Allocate(sub)
	assert.Equal(t, "re_chunk_003.pak.sub_001.pak.patch_001.pak", first.String())
	assert.Equal(t, "re_chunk_003.pak.sub_001.pak.patch_002.pak", second.String())
	assert.True(t, c.Contains(first))
	assert.True(t, c.Contains(second))
	assert.Len(t, c.Series(sub), 3)
}

func TestPlanRemoval(t *testing.T) {
	t.Parallel()

	c := New(names(
		"re_chunk_000.pak.sub_000.pak",
		"re_chunk_000.pak.sub_000.pak.patch_001.pak",
		"re_chunk_000.pak.sub_000.pak.patch_002.pak",
		"re_chunk_000.pak.sub_000.pak.patch_003.pak",
	)...)
	p2 := chunk.MustParse("re_chunk_000.pak.sub_000.pak.patch_002.pak")
	p3 := chunk.MustParse("re_chunk_000.pak.sub_000.pak.patch_003.pak")

	assert.Equal(t, DeletePlaceholder, c.PlanRemoval(p2))

	assert.Equal(t, DeleteFinal, c.PlanRemoval(p3))
	require.True(t, c.Remove(p3))
	assert.False(t, c.Remove(p3))

	assert.Equal(t, DeleteFinal, c.PlanRemoval(p2))
}

func TestPlanRemoval_OtherSeriesIgnored(t *testing.T) {
	t.Parallel()

	c := New(names(
		"re_chunk_000.pak.sub_000.pak.patch_001.pak",
		"re_chunk_000.pak.sub_001.pak.patch_005.pak",
		"re_chunk_001.pak.sub_000.pak.patch_005.pak",
		"re_chunk_000.pak.patch_005.pak",
	)...)
	target := chunk.MustParse("re_chunk_000.pak.sub_000.pak.patch_001.pak")
	assert.Equal(t, DeleteFinal, c.PlanRemoval(target))

	basePatch := chunk.MustParse("re_chunk_000.pak.patch_002.pak")
	c.Register(basePatch)
	assert.Equal(t, DeletePlaceholder, c.PlanRemoval(basePatch))
}

func TestSortDescending(t *testing.T) {
	t.Parallel()

	ns := names(
		"re_chunk_000.pak.sub_000.pak.patch_001.pak",
		"re_chunk_000.pak.sub_000.pak.patch_003.pak",
		"re_chunk_000.pak.sub_000.pak.patch_002.pak",
	)
	SortDescending(ns)
	got := make([]uint32, len(ns))
	for i, n := range ns {
		got[i] = n.Ordinal()
	}
	assert.Equal(t, []uint32{3, 2, 1}, got)
}

func TestNames(t *testing.T) {
	t.Parallel()

	c := New(names("re_chunk_001.pak", "re_chunk_000.pak", "re_chunk_000.pak")...)
	assert.Equal(t, 2, c.Len())
	ns := c.Names()
	require.Len(t, ns, 2)
	assert.Equal(t, "re_chunk_000.pak", ns[0].String())
}
