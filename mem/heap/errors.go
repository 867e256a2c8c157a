package heap

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace indicates that the backing heap has no free span large enough.
	ErrNoSpace = errors.New("heap: no free span large enough")

	// ErrNotInitialized indicates an allocation before Init.
	ErrNotInitialized = errors.New("heap: allocator not initialized")

	// ErrAlreadyInitialized indicates a second Init call.
	ErrAlreadyInitialized = errors.New("heap: allocator already initialized")

	// ErrBadAlign indicates an alignment that is not a power of two.
	ErrBadAlign = errors.New("heap: alignment must be a power of two")

	// ErrBadLayout indicates a size that overflows once padded to its alignment.
	ErrBadLayout = errors.New("heap: layout size overflows")

	// ErrBadRegion indicates a heap range that wraps around the address space.
	ErrBadRegion = errors.New("heap: bad heap region")

	// ErrBadClassTable indicates size classes that are not ascending powers of
	// two large enough to hold a free-list node.
	ErrBadClassTable = errors.New("heap: bad size class table")

	// ErrUnknownStrategy indicates an unrecognised allocator strategy name.
	ErrUnknownStrategy = errors.New("heap: unknown strategy")
)

// ContractViolation is the panic value for programmer errors the allocator
// detects: freeing a block with a different layout than it was allocated
// with, double frees, and blocks too small to hold a free-list node. These
// are never returned as errors.
type ContractViolation struct {
	Op     string
	Addr   uint64
	Layout Layout
	Reason string
}

func (c *ContractViolation) Error() string {
	return fmt.Sprintf("heap: %s %#x %v: %s", c.Op, c.Addr, c.Layout, c.Reason)
}
