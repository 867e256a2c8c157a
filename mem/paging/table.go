package paging

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/mem/phys"
)

// tableFlags are the flags given to every intermediate table entry. Access is
// restricted at the leaf, so parents stay permissive.
const tableFlags = Present | Writable

// PageTable is a 4-level page table hierarchy rooted at a level-4 frame.
//
// NOT thread-safe. The kernel changes mappings only during boot or under its
// own locks.
type PageTable struct {
	ram  *phys.RAM
	root phys.Frame
	tlb  *TLB

	// tables counts intermediate tables allocated by MapTo (root excluded).
	tables uint64
}

// New wraps an existing hierarchy whose level-4 table lives in root.
func New(ram *phys.RAM, root phys.Frame, tlb *TLB) *PageTable {
	if tlb == nil {
		tlb = NewTLB(0)
	}
	return &PageTable{ram: ram, root: root, tlb: tlb}
}

// Create allocates and zeroes a fresh level-4 table from frames.
func Create(ram *phys.RAM, frames phys.FrameSource, tlb *TLB) (*PageTable, error) {
	root, ok := frames.AllocateFrame()
	if !ok {
		return nil, fmt.Errorf("root table: %w", ErrFrameAllocationFailed)
	}
	if !ram.Contains(root) {
		return nil, fmt.Errorf("root table %v: %w", root, ErrFrameOutsideRAM)
	}
	ram.Zero(root)
	return New(ram, root, tlb), nil
}

// Root returns the frame of the level-4 table.
func (pt *PageTable) Root() phys.Frame { return pt.root }

// RAM returns the physical memory the tables live in.
func (pt *PageTable) RAM() *phys.RAM { return pt.ram }

// TLB returns the translation cache.
func (pt *PageTable) TLB() *TLB { return pt.tlb }

// Tables returns how many intermediate tables MapTo has allocated.
func (pt *PageTable) Tables() uint64 { return pt.tables }

func (pt *PageTable) entry(table phys.Frame, idx uint64) uint64 {
	off := idx * format.PageTableEntrySize
	return buf.U64LE(pt.ram.Frame(table)[off:])
}

func (pt *PageTable) setEntry(table phys.Frame, idx, v uint64) {
	off := idx * format.PageTableEntrySize
	buf.PutU64LE(pt.ram.Frame(table)[off:], v)
}

func entryFrame(e uint64) phys.Frame { return phys.Frame(e & format.EntryAddrMask) }
func entryFlags(e uint64) Flags      { return Flags(e) & flagsMask }

// MapTo maps page to frame with the given flags. Missing intermediate tables
// are allocated from frames and zeroed. The TLB is not touched; callers
// invalidate the page before relying on the new translation.
func (pt *PageTable) MapTo(page Page, frame phys.Frame, flags Flags, frames phys.FrameSource) error {
	if !pt.ram.Contains(frame) {
		return fmt.Errorf("map %v: %v: %w", page, frame, ErrFrameOutsideRAM)
	}

	table := pt.root
	for level := format.PageTableLevels; level > 1; level-- {
		idx := page.index(level)
		e := pt.entry(table, idx)
		if !entryFlags(e).Has(Present) {
			next, ok := frames.AllocateFrame()
			if !ok {
				return fmt.Errorf("map %v: level %d table: %w", page, level-1, ErrFrameAllocationFailed)
			}
			if !pt.ram.Contains(next) {
				return fmt.Errorf("map %v: level %d table %v: %w", page, level-1, next, ErrFrameOutsideRAM)
			}
			pt.ram.Zero(next)
			e = next.StartAddress() | uint64(tableFlags|flags&UserAccessible)
			pt.setEntry(table, idx, e)
			pt.tables++
		} else if flags.Has(UserAccessible) && !entryFlags(e).Has(UserAccessible) {
			pt.setEntry(table, idx, e|uint64(UserAccessible))
		}
		table = entryFrame(e)
	}

	idx := page.index(1)
	if old := pt.entry(table, idx); entryFlags(old).Has(Present) {
		return fmt.Errorf("map %v: already mapped to %v: %w", page, entryFrame(old), ErrPageAlreadyMapped)
	}
	pt.setEntry(table, idx, frame.StartAddress()|uint64(flags&flagsMask))
	return nil
}

// leaf walks to the level-1 table of page. ok is false when an intermediate
// table is missing.
func (pt *PageTable) leaf(page Page) (phys.Frame, bool) {
	table := pt.root
	for level := format.PageTableLevels; level > 1; level-- {
		e := pt.entry(table, page.index(level))
		if !entryFlags(e).Has(Present) {
			return 0, false
		}
		table = entryFrame(e)
	}
	return table, true
}

// Unmap removes the translation of page and returns the frame it pointed to.
// Intermediate tables are kept. The TLB is not touched.
func (pt *PageTable) Unmap(page Page) (phys.Frame, error) {
	table, ok := pt.leaf(page)
	if !ok {
		return 0, fmt.Errorf("unmap %v: %w", page, ErrPageNotMapped)
	}
	idx := page.index(1)
	e := pt.entry(table, idx)
	if !entryFlags(e).Has(Present) {
		return 0, fmt.Errorf("unmap %v: %w", page, ErrPageNotMapped)
	}
	pt.setEntry(table, idx, 0)
	return entryFrame(e), nil
}

// lookup resolves page through the TLB, walking the tables on a miss.
func (pt *PageTable) lookup(page Page) (phys.Frame, Flags, error) {
	if f, flags, ok := pt.tlb.Lookup(page); ok {
		return f, flags, nil
	}
	table, ok := pt.leaf(page)
	if !ok {
		return 0, 0, fmt.Errorf("%v: %w", page, ErrPageNotMapped)
	}
	e := pt.entry(table, page.index(1))
	flags := entryFlags(e)
	if !flags.Has(Present) {
		return 0, 0, fmt.Errorf("%v: %w", page, ErrPageNotMapped)
	}
	pt.tlb.Insert(page, entryFrame(e), flags)
	return entryFrame(e), flags, nil
}

// Translate returns the physical address and leaf flags for a virtual address.
func (pt *PageTable) Translate(addr uint64) (uint64, Flags, error) {
	page, err := PageContaining(addr)
	if err != nil {
		return 0, 0, err
	}
	f, flags, err := pt.lookup(page)
	if err != nil {
		return 0, 0, err
	}
	return f.StartAddress() + addr&format.PageMask, flags, nil
}

// Invalidate drops any cached translation of page.
func (pt *PageTable) Invalidate(page Page) { pt.tlb.Flush(page) }

// InvalidateAll drops every cached translation.
func (pt *PageTable) InvalidateAll() { pt.tlb.FlushAll() }

// Mapping is one present leaf translation.
type Mapping struct {
	Page  Page
	Frame phys.Frame
	Flags Flags
}

// Walk calls fn for every present leaf mapping in ascending virtual order
// (lower half first), stopping early when fn returns false.
func (pt *PageTable) Walk(fn func(Mapping) bool) {
	const n = format.PageTableEntries
	for i4 := range uint64(n) {
		e4 := pt.entry(pt.root, i4)
		if !entryFlags(e4).Has(Present) {
			continue
		}
		for i3 := range uint64(n) {
			e3 := pt.entry(entryFrame(e4), i3)
			if !entryFlags(e3).Has(Present) {
				continue
			}
			for i2 := range uint64(n) {
				e2 := pt.entry(entryFrame(e3), i2)
				if !entryFlags(e2).Has(Present) {
					continue
				}
				for i1 := range uint64(n) {
					e1 := pt.entry(entryFrame(e2), i1)
					if !entryFlags(e1).Has(Present) {
						continue
					}
					m := Mapping{
						Page:  pageFromIndices(i4, i3, i2, i1),
						Frame: entryFrame(e1),
						Flags: entryFlags(e1),
					}
					if !fn(m) {
						return
					}
				}
			}
		}
	}
}
