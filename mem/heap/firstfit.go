package heap

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/format"
)

// span is one free range of the backing heap. Spans form a singly linked list
// in ascending address order and never overlap or touch: adjacent spans are
// merged on Deallocate.
type span struct {
	start uint64
	size  uint64
	next  *span
}

func (s *span) end() uint64 { return s.start + s.size }

// Span is a read-only copy of a free span, for inspection.
type Span struct {
	Start uint64
	Len   uint64
}

// End returns the first address past the span.
func (s Span) End() uint64 { return s.Start + s.Len }

// FirstFit is a general-purpose allocator over one contiguous byte range. It
// keeps the free spans in a linked list and hands out the first span, in
// address order, that can hold the aligned request.
//
// It serves the requests that are too large for any size class and mints new
// blocks when a class free list is empty. It never grows past its range.
//
// NOT thread-safe; the segregated allocator calls it under its lock.
type FirstFit struct {
	bottom uint64
	size   uint64
	used   uint64
	head   *span

	initialized bool
}

// Init hands [start, start+size) to the heap as a single free span. The
// caller guarantees the range is mapped and otherwise unused. Init must be
// called exactly once; a second call panics.
func (h *FirstFit) Init(start, size uint64) {
	if h.initialized {
		panic("heap: first-fit heap initialized twice")
	}
	if _, ok := buf.AddOverflowSafe(start, size); !ok {
		panic(fmt.Sprintf("heap: first-fit range %#x+%d wraps", start, size))
	}
	h.initialized = true
	h.bottom = start
	h.size = size
	if size > 0 {
		h.head = &span{start: start, size: size}
	}
}

// blockSize is the number of bytes carved for a request. Zero-size requests
// still take one byte so that every live block has its own address.
func blockSize(l Layout) uint64 { return max(l.Size, 1) }

// AllocateFirstFit carves the first span that fits l. Alignment padding in
// front of the block and the remainder behind it stay free in place.
func (h *FirstFit) AllocateFirstFit(l Layout) (uint64, error) {
	size := blockSize(l)

	var prev *span
	for s := h.head; s != nil; prev, s = s, s.next {
		aligned, ok := format.AlignUp(s.start, l.Align)
		if !ok || aligned > s.end() || s.end()-aligned < size {
			continue
		}

		front := aligned - s.start
		tailStart := aligned + size
		tail := s.end() - tailStart

		switch {
		case front > 0 && tail > 0:
			// Split: keep the padding, insert the tail right after it.
			s.size = front
			s.next = &span{start: tailStart, size: tail, next: s.next}
		case front > 0:
			s.size = front
		case tail > 0:
			s.start = tailStart
			s.size = tail
		default:
			// Exact fit: unlink.
			if prev == nil {
				h.head = s.next
			} else {
				prev.next = s.next
			}
		}

		h.used += size
		return aligned, nil
	}
	return 0, ErrNoSpace
}

// Deallocate returns [addr, addr+size) to the free list and merges it with
// the neighbouring spans when they touch. Freeing memory outside the heap or
// memory that is already free panics.
func (h *FirstFit) Deallocate(addr uint64, l Layout) {
	size := blockSize(l)
	end, ok := buf.AddOverflowSafe(addr, size)
	if !ok || addr < h.bottom || end > h.bottom+h.size {
		panic(&ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: "block outside the backing heap"})
	}

	// prev is the last span starting below addr; next follows it.
	var prev *span
	next := h.head
	for next != nil && next.start < addr {
		prev, next = next, next.next
	}
	if (prev != nil && prev.end() > addr) || (next != nil && next.start < end) {
		panic(&ContractViolation{Op: "free", Addr: addr, Layout: l, Reason: "block overlaps free memory (double free?)"})
	}

	switch {
	case prev != nil && prev.end() == addr:
		prev.size += size
		if next != nil && prev.end() == next.start {
			prev.size += next.size
			prev.next = next.next
		}
	case next != nil && end == next.start:
		next.start = addr
		next.size += size
	default:
		s := &span{start: addr, size: size, next: next}
		if prev == nil {
			h.head = s
		} else {
			prev.next = s
		}
	}
	h.used -= size
}

// Bottom returns the first address of the heap range.
func (h *FirstFit) Bottom() uint64 { return h.bottom }

// Top returns the first address past the heap range.
func (h *FirstFit) Top() uint64 { return h.bottom + h.size }

// Size returns the length of the heap range.
func (h *FirstFit) Size() uint64 { return h.size }

// UsedBytes returns the bytes currently carved out (including class blocks
// sitting on free lists above this heap).
func (h *FirstFit) UsedBytes() uint64 { return h.used }

// FreeBytes returns the bytes in free spans.
func (h *FirstFit) FreeBytes() uint64 { return h.size - h.used }

// Spans returns the free spans in address order.
func (h *FirstFit) Spans() []Span {
	var out []Span
	for s := h.head; s != nil; s = s.next {
		out = append(out, Span{Start: s.start, Len: s.size})
	}
	return out
}

// LargestSpan returns the length of the biggest free span.
func (h *FirstFit) LargestSpan() uint64 {
	var largest uint64
	for s := h.head; s != nil; s = s.next {
		largest = max(largest, s.size)
	}
	return largest
}
