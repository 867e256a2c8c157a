package phys

import "errors"

var (
	// ErrBadMemoryMap indicates malformed or overlapping memory map regions.
	ErrBadMemoryMap = errors.New("phys: bad memory map")

	// ErrRAMSize indicates a RAM size that is not a positive multiple of the frame size.
	ErrRAMSize = errors.New("phys: RAM size must be a positive multiple of 4096")
)
