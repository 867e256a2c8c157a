package paging

import "errors"

var (
	// ErrNonCanonical indicates a virtual address whose bits 48..63 do not repeat bit 47.
	ErrNonCanonical = errors.New("paging: non-canonical address")

	// ErrFrameAllocationFailed indicates the frame source ran dry while a new
	// page table was needed.
	ErrFrameAllocationFailed = errors.New("paging: frame allocation failed")

	// ErrPageAlreadyMapped indicates an attempt to map a page that is already present.
	ErrPageAlreadyMapped = errors.New("paging: page already mapped")

	// ErrPageNotMapped indicates a translation or unmap of a page that is not present.
	ErrPageNotMapped = errors.New("paging: page not mapped")

	// ErrFrameOutsideRAM indicates a frame that does not exist in physical memory.
	ErrFrameOutsideRAM = errors.New("paging: frame outside RAM")
)
