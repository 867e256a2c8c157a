package heap

import "fmt"

// Stats counts allocator activity for tests and the CLI reports.
type Stats struct {
	AllocCalls     int    // Total Alloc() calls
	FastPath       int    // Allocations popped from a class free list
	Refills        int    // Allocations that carved a fresh class block
	Oversized      int    // Allocations above the largest class
	Failures       int    // Allocations that returned ErrNoSpace
	FreeCalls      int    // Total Dealloc() calls
	ListPushes     int    // Blocks pushed onto a class free list
	BytesRequested uint64 // Sum of requested sizes
}

// String renders the counters on one line.
func (s Stats) String() string {
	return fmt.Sprintf(
		"allocs=%d fast=%d refills=%d oversized=%d failures=%d frees=%d pushes=%d requested=%dB",
		s.AllocCalls, s.FastPath, s.Refills, s.Oversized, s.Failures, s.FreeCalls, s.ListPushes, s.BytesRequested,
	)
}
