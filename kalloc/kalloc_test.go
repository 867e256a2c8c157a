package kalloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crysalis-os/kheap/kalloc"
	"github.com/crysalis-os/kheap/mem"
	"github.com/crysalis-os/kheap/mem/heap"
)

// newArenaHeap builds a layout-checked segregated heap over a synthetic arena.
func newArenaHeap(t *testing.T, size int) (kalloc.Heap, *heap.Locked) {
	t.Helper()
	arena := mem.NewArena(0x10000, size)
	locked := heap.NewLocked(heap.New(arena, nil), heap.WithLayoutCheck())
	require.NoError(t, locked.Init(0x10000, uint64(size)))
	return kalloc.On(locked, arena), locked
}

func Test_Box_SetAndFree(t *testing.T) {
	h, locked := newArenaHeap(t, 4096)
	b, err := kalloc.NewBox(h, 5)
	require.NoError(t, err)
	b.Set(6)
	require.Equal(t, uint64(6), b.Get())
	require.Equal(t, 1, locked.Live())

	b.Free()
	require.Zero(t, locked.Live())
	require.Panics(t, func() { b.Get() })
	require.Panics(t, func() { b.Free() })

	// The freed block is reused first.
	c, err := kalloc.NewBox(h, 7)
	require.NoError(t, err)
	require.Equal(t, b.Addr(), c.Addr())
}

func Test_Vec_GrowthFreesOldBuffers(t *testing.T) {
	h, locked := newArenaHeap(t, 16*1024)
	v := kalloc.NewVec(h)
	require.Zero(t, v.Cap())

	var caps []uint64
	for i := range uint64(100) {
		require.NoError(t, v.Push(i*3))
		if len(caps) == 0 || caps[len(caps)-1] != v.Cap() {
			caps = append(caps, v.Cap())
		}
		require.Equal(t, 1, locked.Live(), "exactly one buffer live after push %d", i)
	}
	require.Equal(t, []uint64{4, 8, 16, 32, 64, 128}, caps)

	for i := range uint64(100) {
		require.Equal(t, i*3, v.Get(i))
	}
	v.Set(0, 1000)
	require.Equal(t, uint64(1000), v.Get(0))
	require.Panics(t, func() { v.Get(100) })

	v.Free()
	require.Zero(t, locked.Live())
	require.Zero(t, v.Len())
}

func Test_Vec_PushFailureLeavesVecIntact(t *testing.T) {
	h, _ := newArenaHeap(t, 64)
	v, err := kalloc.VecWithCapacity(h, 4)
	require.NoError(t, err)
	for i := range uint64(4) {
		require.NoError(t, v.Push(i))
	}

	err = v.Push(4)
	require.ErrorIs(t, err, heap.ErrNoSpace)
	require.Equal(t, uint64(4), v.Len())
	require.Equal(t, uint64(6), v.Sum())
}

func Test_VecWithCapacity_Overflow(t *testing.T) {
	h, locked := newArenaHeap(t, 4096)
	_, err := kalloc.VecWithCapacity(h, 1<<62)
	require.ErrorIs(t, err, heap.ErrBadLayout)
	require.Zero(t, locked.Live())
}

func Test_Rc_CountsAndFrees(t *testing.T) {
	h, locked := newArenaHeap(t, 4096)
	a, err := kalloc.NewRc(h, 99)
	require.NoError(t, err)
	b := a.Clone()
	c := b.Clone()
	require.Equal(t, uint64(3), a.Count())
	require.Equal(t, uint64(99), c.Get())

	a.Release()
	b.Release()
	require.Equal(t, uint64(1), c.Count())
	require.Equal(t, 1, locked.Live())

	c.Release()
	require.Zero(t, locked.Live())
	require.Panics(t, func() { c.Release() })
}

func Test_Rc_ReleasePastZeroPanics(t *testing.T) {
	h, _ := newArenaHeap(t, 4096)
	a, err := kalloc.NewRc(h, 1)
	require.NoError(t, err)

	// Corrupt the count so the handle outlives it.
	h.Store64(a.Addr(), 0)
	require.PanicsWithValue(t, "kalloc: rc 0x10000 released past zero", func() { a.Release() })
}
