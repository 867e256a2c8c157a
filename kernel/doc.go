// Package kernel boots the simulated machine and owns the kernel heap.
//
// Boot order mirrors a real kernel: physical RAM and the bootloader memory
// map come first, then the frame source over the usable regions, the root
// page table, the interrupt controller, and finally the heap window mapped
// page by page and handed to the allocator.
//
// Exactly one heap is the global allocator used by Alloc and Dealloc. It is
// installed once, by InitHeap or Boot; NewMachine builds further independent
// machines that never touch it.
//
// # Configuration
//
// DefaultConfig is the standard layout. ConfigFromEnv applies:
//
//	KHEAP_STRATEGY       segregated | linked-list | bump
//	KHEAP_HEAP_SIZE      bytes, 0x hex, or with a K/KiB/M/MiB suffix
//	KHEAP_CHECK_LAYOUTS  strconv.ParseBool value
//	KHEAP_LOG_ALLOC      any non-empty value except 0/false
package kernel
