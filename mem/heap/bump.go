package heap

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/format"
)

// Bump is an append-only allocator: one pointer that only moves forward.
//
// Key characteristics:
//   - O(1) allocation: align the pointer, advance it by the size
//   - Zero memory overhead: no free lists, no spans
//   - Dealloc only counts down live blocks; memory comes back all at once,
//     when the last live block is freed and the pointer rewinds to the start
//
// It suits boot phases that allocate a burst of objects and drop them together.
type Bump struct {
	start uint64
	end   uint64

	// next is the bump pointer: the first unallocated address.
	next uint64

	// live counts blocks handed out and not yet freed.
	live int

	initialized bool
}

// NewBump creates an uninitialized bump allocator.
func NewBump() *Bump { return &Bump{} }

// Init sets the range the pointer moves through.
func (b *Bump) Init(start, size uint64) error {
	if b.initialized {
		return ErrAlreadyInitialized
	}
	end, ok := buf.AddOverflowSafe(start, size)
	if !ok {
		return fmt.Errorf("%#x+%d: %w", start, size, ErrBadRegion)
	}
	b.start, b.end, b.next = start, end, start
	b.initialized = true
	return nil
}

// Alloc aligns the bump pointer and advances it past the block.
func (b *Bump) Alloc(l Layout) (uint64, error) {
	if !b.initialized {
		return 0, ErrNotInitialized
	}
	addr, ok := format.AlignUp(b.next, l.Align)
	if !ok || addr > b.end || b.end-addr < blockSize(l) {
		return 0, fmt.Errorf("%v: %w", l, ErrNoSpace)
	}
	b.next = addr + blockSize(l)
	b.live++
	return addr, nil
}

// Dealloc forgets one live block. The space is reclaimed only when no block
// is live any more.
func (b *Bump) Dealloc(addr uint64, l Layout) {
	if b.live == 0 || addr < b.start || addr >= b.next {
		panic(&ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: "not a live bump block"})
	}
	b.live--
	if b.live == 0 {
		b.next = b.start
	}
}

// Live returns the number of blocks not yet freed.
func (b *Bump) Live() int { return b.live }

// Next returns the bump pointer.
func (b *Bump) Next() uint64 { return b.next }

// Remaining returns the bytes between the bump pointer and the end.
func (b *Bump) Remaining() uint64 { return b.end - b.next }
