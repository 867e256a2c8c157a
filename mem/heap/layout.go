package heap

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/format"
)

// Layout is an allocation request: a size and a power-of-two alignment.
// The same Layout must be passed to Dealloc as was passed to Alloc; the
// allocators keep no per-block metadata to recover it.
type Layout struct {
	Size  uint64
	Align uint64
}

// NewLayout validates size and align.
func NewLayout(size, align uint64) (Layout, error) {
	if !format.IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("align %d: %w", align, ErrBadAlign)
	}
	if _, ok := format.AlignUp(size, align); !ok {
		return Layout{}, fmt.Errorf("size %d align %d: %w", size, align, ErrBadLayout)
	}
	return Layout{Size: size, Align: align}, nil
}

// MustLayout is NewLayout for constant layouts; it panics on invalid input.
func MustLayout(size, align uint64) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// required is the smallest block that satisfies both size and alignment.
func (l Layout) required() uint64 { return max(l.Size, l.Align) }

func (l Layout) String() string {
	return fmt.Sprintf("Layout{size: %d, align: %d}", l.Size, l.Align)
}
