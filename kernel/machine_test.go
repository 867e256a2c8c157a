package kernel_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/kernel"
	"github.com/crysalis-os/kheap/mem/heap"
	"github.com/crysalis-os/kheap/mem/paging"
	"github.com/crysalis-os/kheap/mem/phys"
	"github.com/crysalis-os/kheap/mem/region"
)

func newMachine(t *testing.T, cfg kernel.Config) *kernel.Machine {
	t.Helper()
	m, err := kernel.NewMachine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return m
}

// boot installs a fresh global heap for the duration of the test.
func boot(t *testing.T, cfg kernel.Config) *kernel.Machine {
	t.Helper()
	kernel.ResetForTest()
	m, err := kernel.Boot(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, m.Close())
		kernel.ResetForTest()
	})
	return m
}

func Test_NewMachine_MapsHeapWindow(t *testing.T) {
	m := newMachine(t, kernel.DefaultConfig())

	require.Equal(t, uint64(25), m.HeapFrames)
	require.Equal(t, uint64(4), m.TableFrames, "root plus one table per lower level")
	require.Equal(t, uint64(25), m.Region().Pages.Len())

	require.Equal(t, []paging.Range{{Start: format.HeapStart, End: format.HeapStart + format.HeapSize}}, m.MappedRanges())

	for addr := format.HeapStart; addr < format.HeapStart+format.HeapSize; addr += format.PageSize {
		_, flags, err := m.PageTable.Translate(addr)
		require.NoError(t, err)
		require.True(t, flags.Has(paging.Present|paging.Writable))
	}
	_, _, err := m.PageTable.Translate(format.HeapStart + format.HeapSize)
	require.ErrorIs(t, err, paging.ErrPageNotMapped)
}

func Test_NewMachine_HeapIsUsableMemory(t *testing.T) {
	m := newMachine(t, kernel.DefaultConfig())

	addr, err := m.Heap.Alloc(heap.MustLayout(64, 8))
	require.NoError(t, err)
	m.Heap.Store64(addr, 0xdead_beef)
	m.AddressSpace.Store64(addr+8, 42)
	require.Equal(t, uint64(0xdead_beef), m.Heap.Load64(addr))
	require.Equal(t, uint64(42), m.Heap.Load64(addr+8))
}

func Test_NewMachine_Independent(t *testing.T) {
	a := newMachine(t, kernel.DefaultConfig())
	b := newMachine(t, kernel.DefaultConfig())

	x, err := a.Heap.Alloc(heap.MustLayout(8, 8))
	require.NoError(t, err)
	y, err := b.Heap.Alloc(heap.MustLayout(8, 8))
	require.NoError(t, err)
	require.Equal(t, x, y, "same virtual layout, separate memory")

	a.Heap.Store64(x, 1)
	b.Heap.Store64(y, 2)
	require.Equal(t, uint64(1), a.Heap.Load64(x))
	require.Nil(t, kernel.Global())
}

func Test_NewMachine_EveryStrategy(t *testing.T) {
	for _, s := range []heap.Strategy{heap.StrategySegregated, heap.StrategyLinkedList, heap.StrategyBump} {
		t.Run(s.String(), func(t *testing.T) {
			cfg := kernel.DefaultConfig()
			cfg.Strategy = s
			cfg.CheckLayouts = true
			m := newMachine(t, cfg)

			small, err := m.Heap.Alloc(heap.MustLayout(16, 8))
			require.NoError(t, err)
			big, err := m.Heap.Alloc(heap.MustLayout(3000, 8))
			require.NoError(t, err)
			require.True(t, big >= small+16 || big+3000 <= small)

			snap := m.Heap.Snapshot()
			require.Equal(t, s, snap.Strategy)
			require.Equal(t, 2, m.Heap.Live())

			m.Heap.Dealloc(big, heap.MustLayout(3000, 8))
			m.Heap.Dealloc(small, heap.MustLayout(16, 8))
			require.Zero(t, m.Heap.Live())
		})
	}
}

func Test_Snapshot_Segregated(t *testing.T) {
	m := newMachine(t, kernel.DefaultConfig())
	l := heap.MustLayout(32, 8)
	a, err := m.Heap.Alloc(l)
	require.NoError(t, err)
	b, err := m.Heap.Alloc(l)
	require.NoError(t, err)
	m.Heap.Dealloc(a, l)
	m.Heap.Dealloc(b, l)

	snap := m.Heap.Snapshot()
	require.Equal(t, []int{0, 0, 2, 0, 0, 0, 0, 0, 0}, snap.FreeLists)
	require.Equal(t, uint64(64), snap.UsedBytes, "class blocks stay carved")
	require.Equal(t, 2, snap.Stats.Refills)
	require.Equal(t, []heap.Span{{Start: format.HeapStart + 64, Len: format.HeapSize - 64}}, snap.Spans)
	require.Equal(t, format.HeapSize-64, snap.LargestSpan)
}

func Test_NewMachine_OutOfFrames(t *testing.T) {
	cfg := kernel.DefaultConfig()
	// 16 usable frames: root and tables fit, 25 heap pages do not.
	cfg.RAMSize = format.MiB + 16*format.PageSize
	_, err := kernel.NewMachine(cfg)
	require.ErrorIs(t, err, region.ErrFrameAllocationFailed)
}

func Test_InitHeap_Global(t *testing.T) {
	kernel.ResetForTest()
	t.Cleanup(kernel.ResetForTest)

	_, err := kernel.Alloc(8, 8)
	require.ErrorIs(t, err, kernel.ErrHeapNotInitialized)
	require.Nil(t, kernel.Memory())

	ram, err := phys.NewRAM(4 * format.MiB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ram.Close() })
	frames := phys.NewBootFrameSource(phys.DefaultMemoryMap(ram.Size()))
	pt, err := paging.Create(ram, frames, nil)
	require.NoError(t, err)

	require.NoError(t, kernel.InitHeap(pt, frames))
	used := frames.Allocated()
	require.ErrorIs(t, kernel.InitHeap(pt, frames), kernel.ErrHeapInitialized)
	require.Equal(t, used, frames.Allocated(), "second call maps nothing")

	first, err := kernel.Alloc(8, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(format.HeapStart), first)
	kernel.Memory().Store64(first, 7)
	require.Equal(t, uint64(7), kernel.Memory().Load64(first))
	kernel.Dealloc(first, 8, 8)

	again, err := kernel.Alloc(8, 8)
	require.NoError(t, err)
	require.Equal(t, first, again)

	_, err = kernel.Alloc(8, 3)
	require.ErrorIs(t, err, heap.ErrBadAlign)
}

func Test_InitHeap_FrameShortage(t *testing.T) {
	kernel.ResetForTest()
	t.Cleanup(kernel.ResetForTest)

	ram, err := phys.NewRAM(format.MiB + 8*format.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ram.Close() })
	frames := phys.NewBootFrameSource(phys.DefaultMemoryMap(ram.Size()))
	pt, err := paging.Create(ram, frames, nil)
	require.NoError(t, err)

	err = kernel.InitHeap(pt, frames)
	require.ErrorIs(t, err, region.ErrFrameAllocationFailed)
	require.Nil(t, kernel.Global(), "a failed init installs nothing")
}

func Test_Boot_Twice(t *testing.T) {
	m := boot(t, kernel.DefaultConfig())
	require.Same(t, m.Heap, kernel.Global())

	_, err := kernel.Boot(kernel.DefaultConfig())
	require.ErrorIs(t, err, kernel.ErrHeapInitialized)
}

func Test_Close_UninstallsGlobal(t *testing.T) {
	kernel.ResetForTest()
	m, err := kernel.Boot(kernel.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.Nil(t, kernel.Global())
}

func Test_Dealloc_MismatchedLayoutPanics(t *testing.T) {
	cfg := kernel.DefaultConfig()
	cfg.CheckLayouts = true
	boot(t, cfg)

	addr, err := kernel.Alloc(24, 8)
	require.NoError(t, err)

	var cv *heap.ContractViolation
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			require.True(t, errors.As(err, &cv))
		}()
		kernel.Dealloc(addr, 16, 8)
	}()
	require.Equal(t, addr, cv.Addr)
}

// Test_Interrupt_AllocatingHandlerDeferred raises an allocating interrupt
// while the heap lock is held. The handler must not run until the lock is
// released, and must then succeed.
func Test_Interrupt_AllocatingHandlerDeferred(t *testing.T) {
	m := boot(t, kernel.DefaultConfig())

	var got uint64
	var handlerErr error
	m.Heap.With(func(heap.Backend) {
		require.False(t, m.Interrupts.Enabled())
		m.Interrupts.Raise(func() {
			got, handlerErr = kernel.Alloc(128, 8)
		})
		require.Equal(t, 1, m.Interrupts.Pending(), "held back while the lock is held")
	})

	require.True(t, m.Interrupts.Enabled())
	require.Equal(t, 1, m.Interrupts.Delivered())
	require.NoError(t, handlerErr)
	require.NotZero(t, got)
}
