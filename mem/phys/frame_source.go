package phys

import "github.com/crysalis-os/kheap/internal/format"

// BootFrameSource returns usable frames from the bootloader's memory map.
//
// Frames are handed out in map order, each usable region walked in 4096-byte
// strides from its (page-aligned) start. The cursor only moves forward, so no
// frame is ever returned twice and nothing can be given back. Once the last
// usable region is exhausted every call returns false.
type BootFrameSource struct {
	regions []Region // usable regions only

	// region and next locate the next candidate frame.
	region int
	next   uint64

	allocated uint64
	total     uint64
}

// NewBootFrameSource creates a frame source over the usable regions of m.
// The caller guarantees those frames really are unused.
func NewBootFrameSource(m MemoryMap) *BootFrameSource {
	fs := &BootFrameSource{}
	for _, r := range m {
		if r.Kind != Usable || r.Frames() == 0 {
			continue
		}
		fs.regions = append(fs.regions, r)
		fs.total += r.Frames()
	}
	fs.seek()
	return fs
}

// seek positions next at the first frame of the current region.
func (fs *BootFrameSource) seek() {
	if fs.region < len(fs.regions) {
		fs.next, _ = format.AlignUp(fs.regions[fs.region].Start, format.PageSize)
	}
}

// AllocateFrame implements FrameSource.
func (fs *BootFrameSource) AllocateFrame() (Frame, bool) {
	for fs.region < len(fs.regions) {
		r := fs.regions[fs.region]
		if fs.next+format.PageSize <= r.End {
			f := Frame(fs.next)
			fs.next += format.PageSize
			fs.allocated++
			return f, true
		}
		fs.region++
		fs.seek()
	}
	return 0, false
}

// Allocated returns how many frames were handed out so far.
func (fs *BootFrameSource) Allocated() uint64 { return fs.allocated }

// Remaining returns how many frames can still be handed out.
func (fs *BootFrameSource) Remaining() uint64 { return fs.total - fs.allocated }
