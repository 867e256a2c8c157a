package heap

import (
	"fmt"
	"slices"

	"github.com/crysalis-os/kheap/internal/format"
)

// ClassTable holds the block sizes of the segregated allocator. Every size is
// a power of two, so a block of class c is also aligned to c, and each is at
// least as large and as aligned as a free-list node.
type ClassTable struct {
	sizes []uint64
}

// NewClassTable validates and copies sizes.
func NewClassTable(sizes []uint64) (*ClassTable, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no classes: %w", ErrBadClassTable)
	}
	for i, s := range sizes {
		if !format.IsPowerOfTwo(s) {
			return nil, fmt.Errorf("class %d (%d) not a power of two: %w", i, s, ErrBadClassTable)
		}
		if s < format.NodeSize || s < format.NodeAlign {
			return nil, fmt.Errorf("class %d (%d) smaller than a free-list node: %w", i, s, ErrBadClassTable)
		}
		if i > 0 && s <= sizes[i-1] {
			return nil, fmt.Errorf("class %d (%d) not ascending: %w", i, s, ErrBadClassTable)
		}
	}
	return &ClassTable{sizes: slices.Clone(sizes)}, nil
}

// DefaultClassTable returns the table {8, 16, ..., 2048}.
func DefaultClassTable() *ClassTable {
	t, err := NewClassTable(format.DefaultSizeClasses)
	if err != nil {
		panic(err)
	}
	return t
}

// ListIndex returns the smallest class that fits max(size, align), or false
// when the request is larger than the largest class and must bypass them.
func (t *ClassTable) ListIndex(l Layout) (int, bool) {
	idx, _ := slices.BinarySearch(t.sizes, l.required())
	if idx == len(t.sizes) {
		return 0, false
	}
	return idx, true
}

// Len returns the number of classes.
func (t *ClassTable) Len() int { return len(t.sizes) }

// Size returns the block size of class idx.
func (t *ClassTable) Size(idx int) uint64 { return t.sizes[idx] }

// Largest returns the biggest block size served from a free list.
func (t *ClassTable) Largest() uint64 { return t.sizes[len(t.sizes)-1] }

// Sizes returns a copy of the class sizes.
func (t *ClassTable) Sizes() []uint64 { return slices.Clone(t.sizes) }

func (t *ClassTable) String() string {
	return fmt.Sprint(t.sizes)
}
