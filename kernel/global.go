package kernel

import (
	"sync"

	"github.com/crysalis-os/kheap/mem"
	"github.com/crysalis-os/kheap/mem/heap"
	"github.com/crysalis-os/kheap/mem/paging"
	"github.com/crysalis-os/kheap/mem/phys"
)

// global is the single process-wide allocator every kernel.Alloc goes
// through. It is set once, by InitHeap or Boot.
var global struct {
	mu   sync.RWMutex
	heap *Heap
}

// InitHeap maps the standard heap window (DefaultConfig) through pt and
// installs it as the global allocator. Frame shortages come back as the
// region error, so errors.Is(err, region.ErrFrameAllocationFailed) holds. A
// second call returns ErrHeapInitialized without touching the page table.
func InitHeap(pt *paging.PageTable, frames phys.FrameSource) error {
	return initGlobal(func() (*Heap, error) {
		return NewHeap(DefaultConfig(), pt, frames, nil)
	})
}

func initGlobal(build func() (*Heap, error)) error {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.heap != nil {
		return ErrHeapInitialized
	}
	h, err := build()
	if err != nil {
		return err
	}
	global.heap = h
	return nil
}

// Global returns the installed heap, or nil before InitHeap.
func Global() *Heap {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.heap
}

// Memory returns the virtual memory view of the global heap, or nil before
// InitHeap.
func Memory() mem.Memory {
	if h := Global(); h != nil {
		return h.Memory
	}
	return nil
}

// Alloc allocates size bytes aligned to align from the global heap.
func Alloc(size, align uint64) (uint64, error) {
	l, err := heap.NewLayout(size, align)
	if err != nil {
		return 0, err
	}
	h := Global()
	if h == nil {
		return 0, ErrHeapNotInitialized
	}
	return h.Alloc(l)
}

// Dealloc frees a block obtained from Alloc. size and align must match the
// allocation; freeing before InitHeap or with an invalid layout panics.
func Dealloc(addr, size, align uint64) {
	l, err := heap.NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	h := Global()
	if h == nil {
		panic(&heap.ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: ErrHeapNotInitialized.Error()})
	}
	h.Dealloc(addr, l)
}

// uninstall clears the global heap if it is h.
func uninstall(h *Heap) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.heap == h {
		global.heap = nil
	}
}
