// Package format holds the fixed layout constants of the kernel memory
// subsystem: page geometry, the page-table entry format, and the reference
// heap configuration. Everything here is shared by the physical, paging and
// heap packages so they agree on sizes without importing each other.
package format

const (
	// PageSize is the size of a virtual page and of a physical frame.
	PageSize = 4096

	// PageShift is log2(PageSize).
	PageShift = 12

	// PageMask masks the offset-within-page bits of an address.
	PageMask = PageSize - 1
)

const (
	// HeapStart is the virtual address of the first byte of the kernel heap.
	// It is canonical (bit 47 clear) and far away from identity-mapped memory.
	HeapStart uint64 = 0x_4444_4444_0000

	// HeapSize is the size of the kernel heap window: 100 KiB.
	HeapSize uint64 = 100 * 1024
)

const (
	// PageTableEntries is the number of entries in one page table at any level.
	PageTableEntries = 512

	// PageTableEntrySize is the size of one page-table entry in bytes.
	PageTableEntrySize = 8

	// PageTableLevels is the depth of the translation hierarchy (L4 → L1).
	PageTableLevels = 4

	// EntryAddrMask selects the physical frame address bits 12..51 of an entry.
	EntryAddrMask uint64 = 0x000F_FFFF_FFFF_F000

	// EntryIndexBits is the number of virtual address bits consumed per level.
	EntryIndexBits = 9

	// CanonicalBits is the number of significant virtual address bits; bits
	// 48..63 must be copies of bit 47.
	CanonicalBits = 48
)

const (
	// NodeSize is the size of an in-place free-list node (one next link).
	NodeSize = 8

	// NodeAlign is the alignment an in-place free-list node requires.
	NodeAlign = 8
)

// DefaultSizeClasses are the block sizes of the segregated allocator. Each one
// is a power of two and doubles as the block alignment.
var DefaultSizeClasses = []uint64{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// Sizes for human-readable reporting.
const (
	KiB = 1024
	MiB = 1024 * KiB
)
