// Package heap provides the kernel's dynamic memory allocators.
//
// # Overview
//
// The heap lives in a fixed, already-mapped address range. The production
// allocator is a segregated free-list design: small requests are rounded up
// to a power-of-two size class and served from a per-class LIFO list in O(1),
// while large requests and list refills go to a first-fit backing heap.
//
// # Allocators
//
// Allocator: segregated free lists (default)
//
//   - 9 size classes (8 B to 2 KiB), class size == class alignment
//   - O(1) pop/push on the class lists, nodes stored inside the freed blocks
//   - Empty lists are refilled one block at a time from the backing heap
//   - Requests above 2 KiB bypass the classes
//
// FirstFit / LinkedList: first-fit span list
//
//   - Free spans in address order, first span that fits wins
//   - Alignment padding and remainders stay free in place
//   - Adjacent spans are coalesced on free
//
// Bump: append-only pointer
//
//   - Memory is reclaimed only when every block has been freed
//
// # Size Classes
//
//	Class 0:    8 bytes     Class 5:  256 bytes
//	Class 1:   16 bytes     Class 6:  512 bytes
//	Class 2:   32 bytes     Class 7: 1024 bytes
//	Class 3:   64 bytes     Class 8: 2048 bytes
//	Class 4:  128 bytes
//
// The class for a Layout is the smallest one >= max(Size, Align). Rounding
// costs at most 2x internal waste and keeps every class block aligned to its
// own size.
//
// # Usage Example
//
//	a := heap.New(memory, nil)
//	if err := a.Init(heapStart, heapSize); err != nil {
//	    return err
//	}
//	l := heap.MustLayout(24, 8)
//	addr, err := a.Alloc(l) // class 32
//	if err != nil {
//	    return err
//	}
//	// ... use [addr, addr+24) ...
//	a.Dealloc(addr, l) // same layout
//
// # Contract
//
// The allocators keep no per-block header, so Dealloc must receive exactly
// the Layout used at Alloc. Violations that can be detected (blocks outside
// the heap, misaligned class blocks, double frees in the backing heap) panic
// with a *ContractViolation; Locked with WithLayoutCheck detects the rest.
//
// # Thread Safety
//
// Allocator, FirstFit, LinkedList and Bump are not thread-safe. Locked wraps
// any of them behind one mutex and masks interrupts for each call.
package heap
