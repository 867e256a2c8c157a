package kalloc

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/mem/heap"
)

// minVecCap is the capacity of the first buffer.
const minVecCap = 4

// Vec is a growable sequence of uint64 stored in one heap buffer. When full,
// Push moves the elements to a buffer twice the size and frees the old one.
type Vec struct {
	h   Heap
	buf uint64
	len uint64
	cap uint64
}

// NewVec returns an empty vector. Nothing is allocated until the first Push.
func NewVec(h Heap) *Vec { return &Vec{h: h} }

// VecWithCapacity returns an empty vector with room for n elements.
func VecWithCapacity(h Heap, n uint64) (*Vec, error) {
	v := &Vec{h: h}
	if n > 0 {
		if err := v.grow(n); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func bufLayout(n uint64) heap.Layout {
	return heap.Layout{Size: n * wordSize, Align: wordSize}
}

// grow moves the elements into a fresh buffer of newCap elements.
func (v *Vec) grow(newCap uint64) error {
	if _, ok := buf.MulOverflowSafe(newCap, wordSize); !ok {
		return fmt.Errorf("kalloc: vec capacity %d: %w", newCap, heap.ErrBadLayout)
	}
	addr, err := v.h.Alloc(bufLayout(newCap))
	if err != nil {
		return err
	}
	if v.cap > 0 {
		tmp := make([]byte, v.len*wordSize)
		v.h.Read(v.buf, tmp)
		v.h.Write(addr, tmp)
		v.h.Dealloc(v.buf, bufLayout(v.cap))
	}
	v.buf, v.cap = addr, newCap
	return nil
}

// Push appends x. On allocation failure the vector is unchanged.
func (v *Vec) Push(x uint64) error {
	if v.len == v.cap {
		if err := v.grow(max(minVecCap, 2*v.cap)); err != nil {
			return err
		}
	}
	v.h.Store64(v.buf+v.len*wordSize, x)
	v.len++
	return nil
}

// Get returns element i.
func (v *Vec) Get(i uint64) uint64 {
	v.bounds(i)
	return v.h.Load64(v.buf + i*wordSize)
}

// Set overwrites element i.
func (v *Vec) Set(i, x uint64) {
	v.bounds(i)
	v.h.Store64(v.buf+i*wordSize, x)
}

func (v *Vec) bounds(i uint64) {
	if i >= v.len {
		panic(fmt.Sprintf("kalloc: index %d out of range [0:%d]", i, v.len))
	}
}

// Len returns the number of elements.
func (v *Vec) Len() uint64 { return v.len }

// Cap returns the number of elements the current buffer holds.
func (v *Vec) Cap() uint64 { return v.cap }

// Sum adds up all elements, wrapping on overflow.
func (v *Vec) Sum() uint64 {
	var total uint64
	for i := range v.len {
		total += v.h.Load64(v.buf + i*wordSize)
	}
	return total
}

// Free releases the buffer and empties the vector.
func (v *Vec) Free() {
	if v.cap > 0 {
		v.h.Dealloc(v.buf, bufLayout(v.cap))
	}
	v.buf, v.len, v.cap = 0, 0, 0
}
