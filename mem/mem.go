// Package mem defines how the kernel memory subsystem touches memory.
//
// Allocators never hold Go pointers into the heap; they work with addresses
// (uint64) and read or write through a Memory. Two implementations exist:
//
//   - Arena: a flat synthetic range [Base, Base+len) over a byte slice, used
//     by tests and tools that exercise an allocator in isolation.
//   - paging.AddressSpace: the kernel's virtual address space, translating
//     every access through the page tables into simulated physical RAM.
//
// Every access outside mapped memory is a page fault. Faults are fatal and
// surface as a panic carrying a *Fault.
package mem

import "fmt"

// Memory is byte-addressable memory at 64-bit addresses.
type Memory interface {
	// Load64 reads the little-endian uint64 at addr.
	Load64(addr uint64) uint64

	// Store64 writes v as a little-endian uint64 at addr.
	Store64(addr uint64, v uint64)

	// Read copies len(p) bytes starting at addr into p.
	Read(addr uint64, p []byte)

	// Write copies p into memory starting at addr.
	Write(addr uint64, p []byte)
}

// Access is the kind of memory access that faulted.
type Access uint8

const (
	AccessRead Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read"
}

// Fault describes an access to memory that is not there (or not writable).
// It is the panic value of every Memory implementation in this module.
type Fault struct {
	Addr   uint64
	Len    int
	Access Access
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("mem: %s fault at %#x (+%d): %s", f.Access, f.Addr, f.Len, f.Reason)
}
