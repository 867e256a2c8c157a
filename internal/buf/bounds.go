package buf

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow reports an address computation that does not fit in 64 bits.
var ErrOverflow = errors.New("buf: address overflow")

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow.
func AddOverflowSafe(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow.
// Used for count * elementSize calculations in growable sequences.
func MulOverflowSafe(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

// CheckRange validates that [start, start+length) lies within [lo, hi) and
// returns the exclusive end.
func CheckRange(lo, hi, start, length uint64) (uint64, error) {
	end, ok := AddOverflowSafe(start, length)
	if !ok {
		return 0, fmt.Errorf("range %#x+%d: %w", start, length, ErrOverflow)
	}
	if start < lo || end > hi {
		return 0, fmt.Errorf("range [%#x, %#x) outside [%#x, %#x)", start, end, lo, hi)
	}
	return end, nil
}
