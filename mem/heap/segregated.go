package heap

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/internal/klog"
	"github.com/crysalis-os/kheap/mem"
)

// noBlock marks an empty free list. Address 0 stays usable as a block.
const noBlock = ^uint64(0)

// Allocator is the segregated free-list allocator: one LIFO free list per
// size class on top of a first-fit backing heap.
//
// A freed small block becomes a free-list node in place: its first 8 bytes
// hold the address of the next free block of the same class. Nodes exist
// only while the block is free and are read back through mem on the next
// allocation, so the allocator itself stores nothing per block.
//
// Requests above the largest class bypass the lists and go straight to the
// backing heap, as do refills of empty lists (one block at a time).
//
// NOT thread-safe. Wrap it in Locked for shared use.
type Allocator struct {
	mem     mem.Memory
	classes *ClassTable
	heads   []uint64
	backing FirstFit

	initialized bool
	stats       Stats
}

// New creates an uninitialized allocator that stores free-list nodes in m.
// A nil classes selects DefaultClassTable.
func New(m mem.Memory, classes *ClassTable) *Allocator {
	if classes == nil {
		classes = DefaultClassTable()
	}
	heads := make([]uint64, classes.Len())
	for i := range heads {
		heads[i] = noBlock
	}
	return &Allocator{mem: m, classes: classes, heads: heads}
}

// Init hands [start, start+size) to the backing heap. It must be called once,
// before any Alloc, and the caller guarantees the range is mapped and unused.
func (a *Allocator) Init(start, size uint64) error {
	if a.initialized {
		return ErrAlreadyInitialized
	}
	if _, ok := buf.AddOverflowSafe(start, size); !ok {
		return fmt.Errorf("%#x+%d: %w", start, size, ErrBadRegion)
	}
	a.backing.Init(start, size)
	a.initialized = true
	return nil
}

// ListIndex returns the class serving l, or false for oversized requests.
func (a *Allocator) ListIndex(l Layout) (int, bool) {
	return a.classes.ListIndex(l)
}

// Alloc returns the address of a block satisfying l.
//
//   - class list non-empty: pop its head (no backing heap call)
//   - class list empty: carve one (class, class) block from the backing heap
//   - no class: carve l itself from the backing heap
//
// ErrNoSpace is the only failure once initialized; it is not retried.
func (a *Allocator) Alloc(l Layout) (uint64, error) {
	if !a.initialized {
		return 0, ErrNotInitialized
	}
	a.stats.AllocCalls++
	a.stats.BytesRequested += l.Size

	idx, ok := a.classes.ListIndex(l)
	if !ok {
		a.stats.Oversized++
		addr, err := a.backing.AllocateFirstFit(l)
		if klog.AllocEnabled() {
			klog.Debug("alloc oversized", "size", l.Size, "align", l.Align, "addr", addr, "err", err)
		}
		if err != nil {
			a.stats.Failures++
			return 0, fmt.Errorf("%v: %w", l, err)
		}
		return addr, nil
	}

	if head := a.heads[idx]; head != noBlock {
		a.heads[idx] = a.mem.Load64(head)
		a.stats.FastPath++
		return head, nil
	}

	// Class sizes are powers of two, so the size doubles as the alignment.
	block := a.classes.Size(idx)
	a.stats.Refills++
	addr, err := a.backing.AllocateFirstFit(Layout{Size: block, Align: block})
	if klog.AllocEnabled() {
		klog.Debug("alloc refill", "class", block, "addr", addr, "err", err)
	}
	if err != nil {
		a.stats.Failures++
		return 0, fmt.Errorf("refill class %d for %v: %w", block, l, err)
	}
	return addr, nil
}

// Dealloc releases the block at addr, which must have been returned by Alloc
// with the same layout. Small blocks are pushed onto the head of their class
// list, so the most recently freed block is reused first.
func (a *Allocator) Dealloc(addr uint64, l Layout) {
	if !a.initialized {
		panic(&ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: "allocator not initialized"})
	}
	a.stats.FreeCalls++

	idx, ok := a.classes.ListIndex(l)
	if !ok {
		a.backing.Deallocate(addr, l)
		return
	}

	block := a.classes.Size(idx)
	if format.NodeSize > block || format.NodeAlign > block {
		panic(&ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: "block cannot hold a free-list node"})
	}
	if !format.IsAligned(addr, block) || addr < a.backing.Bottom() || addr+block > a.backing.Top() {
		panic(&ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: fmt.Sprintf("not a class-%d block of this heap", block)})
	}

	a.mem.Store64(addr, a.heads[idx])
	a.heads[idx] = addr
	a.stats.ListPushes++
}

// FreeBlocks returns the free blocks of class idx, head first.
func (a *Allocator) FreeBlocks(idx int) []uint64 {
	var out []uint64
	for b := a.heads[idx]; b != noBlock; b = a.mem.Load64(b) {
		out = append(out, b)
	}
	return out
}

// FreeListLen returns the number of free blocks of class idx.
func (a *Allocator) FreeListLen(idx int) int {
	n := 0
	for b := a.heads[idx]; b != noBlock; b = a.mem.Load64(b) {
		n++
	}
	return n
}

// Classes returns the size class table.
func (a *Allocator) Classes() *ClassTable { return a.classes }

// Backing returns the first-fit heap underneath the free lists.
func (a *Allocator) Backing() *FirstFit { return &a.backing }

// Stats returns a snapshot of the allocation counters.
func (a *Allocator) Stats() Stats { return a.stats }
