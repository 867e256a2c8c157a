package paging

import (
	"fmt"
	"iter"
	"strings"

	"github.com/crysalis-os/kheap/internal/format"
)

// Page is a virtual memory page, identified by its canonical, page-aligned
// start address.
type Page uint64

// IsCanonical reports whether bits 48..63 of addr are copies of bit 47.
func IsCanonical(addr uint64) bool {
	top := addr >> (format.CanonicalBits - 1)
	return top == 0 || top == (1<<(64-format.CanonicalBits+1))-1
}

// PageContaining returns the page that contains addr.
func PageContaining(addr uint64) (Page, error) {
	if !IsCanonical(addr) {
		return 0, fmt.Errorf("%#x: %w", addr, ErrNonCanonical)
	}
	return Page(format.AlignDown(addr, format.PageSize)), nil
}

// StartAddress returns the virtual address of the first byte of the page.
func (p Page) StartAddress() uint64 { return uint64(p) }

// index returns the table index selected by p at the given level (4..1).
func (p Page) index(level int) uint64 {
	shift := format.PageShift + format.EntryIndexBits*(level-1)
	return (uint64(p) >> shift) & (format.PageTableEntries - 1)
}

func (p Page) String() string {
	return fmt.Sprintf("Page(%#x)", uint64(p))
}

// signExtend fills bits 48..63 of a higher-half address.
const signExtend uint64 = 0xFFFF_0000_0000_0000

// pageFromIndices rebuilds the canonical page selected by one index per level.
func pageFromIndices(l4, l3, l2, l1 uint64) Page {
	addr := l4<<39 | l3<<30 | l2<<21 | l1<<12
	if addr&(1<<(format.CanonicalBits-1)) != 0 {
		addr |= signExtend
	}
	return Page(addr)
}

// PageRange is the inclusive range of pages [First, Last].
type PageRange struct {
	First Page
	Last  Page
}

// PageRangeInclusive returns the pages from first to last, both included.
func PageRangeInclusive(first, last Page) PageRange {
	return PageRange{First: first, Last: last}
}

// Len returns the number of pages in the range.
func (r PageRange) Len() uint64 {
	if r.Last < r.First {
		return 0
	}
	return (uint64(r.Last)-uint64(r.First))/format.PageSize + 1
}

// All yields every page of the range in ascending order.
func (r PageRange) All() iter.Seq[Page] {
	return func(yield func(Page) bool) {
		n := r.Len()
		for i := range n {
			if !yield(r.First + Page(i*format.PageSize)) {
				return
			}
		}
	}
}

// Flags are the permission and status bits of a page-table entry.
type Flags uint64

const (
	Present        Flags = 1 << 0
	Writable       Flags = 1 << 1
	UserAccessible Flags = 1 << 2
	NoExecute      Flags = 1 << 63

	flagsMask = Present | Writable | UserAccessible | NoExecute
)

// Has reports whether all bits of want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

func (f Flags) String() string {
	if f == 0 {
		return "NONE"
	}
	var parts []string
	for _, bit := range []struct {
		f    Flags
		name string
	}{
		{Present, "PRESENT"},
		{Writable, "WRITABLE"},
		{UserAccessible, "USER"},
		{NoExecute, "NX"},
	} {
		if f.Has(bit.f) {
			parts = append(parts, bit.name)
		}
	}
	return strings.Join(parts, "|")
}
