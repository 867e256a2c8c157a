// Package region establishes the page-backed heap window: every page of a
// fixed virtual range is mapped present and writable to its own physical
// frame before the heap allocator is allowed to touch it.
package region

import (
	"errors"
	"fmt"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/klog"
	"github.com/crysalis-os/kheap/mem/paging"
	"github.com/crysalis-os/kheap/mem/phys"
)

var (
	// ErrFrameAllocationFailed indicates the frame source ran out while
	// mapping the heap window. It is fatal to boot.
	ErrFrameAllocationFailed = errors.New("region: frame allocation failed")

	// ErrInvalidRegion indicates an empty or overflowing heap window.
	ErrInvalidRegion = errors.New("region: invalid heap window")
)

// heapFlags are the leaf flags of every heap page.
const heapFlags = paging.Present | paging.Writable

// Mapper installs page translations and invalidates cached ones.
// *paging.PageTable implements it.
type Mapper interface {
	MapTo(page paging.Page, frame phys.Frame, flags paging.Flags, frames phys.FrameSource) error
	Invalidate(page paging.Page)
}

// Region is a mapped heap window [Start, Start+Size).
type Region struct {
	Start uint64
	Size  uint64
	Pages paging.PageRange
}

// End returns the first address past the window.
func (r Region) End() uint64 { return r.Start + r.Size }

// Init maps every page covering [start, start+size) to a fresh frame from
// frames. The same frame source is handed to the mapper for intermediate
// tables. It must run exactly once per window; calling it again for the same
// window fails with paging.ErrPageAlreadyMapped.
//
// Running out of frames is reported as ErrFrameAllocationFailed, whether the
// heap page or one of its page tables could not get one.
func Init(mapper Mapper, frames phys.FrameSource, start, size uint64) (Region, error) {
	if size == 0 {
		return Region{}, fmt.Errorf("empty window at %#x: %w", start, ErrInvalidRegion)
	}
	end, ok := buf.AddOverflowSafe(start, size-1)
	if !ok {
		return Region{}, fmt.Errorf("window %#x+%d: %w", start, size, ErrInvalidRegion)
	}
	first, err := paging.PageContaining(start)
	if err != nil {
		return Region{}, fmt.Errorf("%w: %w", ErrInvalidRegion, err)
	}
	last, err := paging.PageContaining(end)
	if err != nil {
		return Region{}, fmt.Errorf("%w: %w", ErrInvalidRegion, err)
	}
	pages := paging.PageRangeInclusive(first, last)

	for page := range pages.All() {
		frame, ok := frames.AllocateFrame()
		if !ok {
			klog.Error("heap region: out of frames", "page", page.String())
			return Region{}, fmt.Errorf("%v: %w", page, ErrFrameAllocationFailed)
		}
		if err := mapper.MapTo(page, frame, heapFlags, frames); err != nil {
			if errors.Is(err, paging.ErrFrameAllocationFailed) {
				return Region{}, fmt.Errorf("%w: %w", ErrFrameAllocationFailed, err)
			}
			return Region{}, fmt.Errorf("region: %w", err)
		}
		mapper.Invalidate(page)
		klog.Debug("heap page mapped", "page", page.String(), "frame", frame.String())
	}

	klog.Info("heap region mapped",
		"start", fmt.Sprintf("%#x", start),
		"size", size,
		"pages", pages.Len(),
	)
	return Region{Start: start, Size: size, Pages: pages}, nil
}
