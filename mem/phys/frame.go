// Package phys models physical memory: 4 KiB frames, the boot-provided memory
// map, the frame source that hands out usable frames, and the simulated RAM
// those frames live in.
package phys

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/format"
)

// Frame is a physical memory frame, identified by its page-aligned start address.
type Frame uint64

// FrameContaining returns the frame that contains the given physical address.
// Unaligned addresses are rounded down.
func FrameContaining(addr uint64) Frame {
	return Frame(format.AlignDown(addr, format.PageSize))
}

// FrameFromNumber returns the n-th frame of physical memory.
func FrameFromNumber(n uint64) Frame {
	return Frame(n << format.PageShift)
}

// StartAddress returns the physical address of the first byte of the frame.
func (f Frame) StartAddress() uint64 { return uint64(f) }

// Number returns the frame index (address / 4096).
func (f Frame) Number() uint64 { return uint64(f) >> format.PageShift }

func (f Frame) String() string {
	return fmt.Sprintf("Frame(%#x)", uint64(f))
}

// FrameSource hands out unused physical frames.
type FrameSource interface {
	// AllocateFrame returns the next free frame, or false when none is left.
	AllocateFrame() (Frame, bool)
}
