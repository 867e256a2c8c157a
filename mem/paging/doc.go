// Package paging implements 4-level x86_64-style virtual memory on top of
// simulated physical RAM.
//
// # Page Tables
//
// Every table is one 4 KiB physical frame holding 512 little-endian 8-byte
// entries. An entry stores the physical address of the next-level table (or,
// at level 1, of the mapped frame) in bits 12..51 and its flags in the rest:
//
//	bit 0   Present
//	bit 1   Writable
//	bit 2   UserAccessible
//	bit 63  NoExecute
//
// A virtual address selects one entry per level:
//
//	 47      39 38      30 29      21 20      12 11         0
//	+----------+----------+----------+----------+------------+
//	| L4 index | L3 index | L2 index | L1 index |   offset   |
//	+----------+----------+----------+----------+------------+
//
// Bits 48..63 must repeat bit 47 (canonical form).
//
// # Mapping
//
// PageTable.MapTo installs a page → frame translation, pulling frames for
// missing intermediate tables from the same FrameSource the caller uses for
// the mapped frames, so the two never hand out the same frame twice.
//
// # TLB
//
// Translations are cached in a software TLB. Like the hardware one it is not
// coherent with the tables: after changing a mapping the caller must call
// Invalidate for the page, or reads may still hit the old frame.
//
// # Address Space
//
// AddressSpace implements mem.Memory over the tables, so allocators can read
// and write virtual addresses. Touching an unmapped page, or writing a page
// without Writable, panics with a *mem.Fault.
package paging
