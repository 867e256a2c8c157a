package format

// Alignment utilities. All alignments handled by the memory subsystem are
// powers of two, so rounding is done with masks.

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns addr rounded up to the next multiple of align, which must be
// a power of two. ok is false when the result would not fit in 64 bits.
//
// Example:
//
//	AlignUp(0x1001, 8)  = 0x1008
//	AlignUp(0x1008, 8)  = 0x1008
//	AlignUp(0x1009, 16) = 0x1010
func AlignUp(addr, align uint64) (uint64, bool) {
	mask := align - 1
	if addr > ^uint64(0)-mask {
		return 0, false
	}
	return (addr + mask) &^ mask, true
}

// AlignDown returns addr rounded down to a multiple of align (a power of two).
func AlignDown(addr, align uint64) uint64 {
	return addr &^ (align - 1)
}

// IsAligned reports whether addr is a multiple of align (a power of two).
func IsAligned(addr, align uint64) bool {
	return addr&(align-1) == 0
}

// AlignPage returns n aligned up to the next page boundary.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n uint64) uint64 {
	return (n + PageMask) &^ uint64(PageMask)
}
