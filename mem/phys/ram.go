package phys

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/internal/mmfile"
)

// RAM is simulated physical memory, addressed from 0. It is backed by an
// anonymous mapping outside the Go heap.
type RAM struct {
	data    []byte
	cleanup func() error
}

// NewRAM maps size bytes of zeroed physical memory.
func NewRAM(size uint64) (*RAM, error) {
	if size == 0 || format.AlignPage(size) != size || size > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("%d bytes: %w", size, ErrRAMSize)
	}
	data, cleanup, err := mmfile.Anon(int(size))
	if err != nil {
		return nil, fmt.Errorf("phys: map RAM: %w", err)
	}
	return &RAM{data: data, cleanup: cleanup}, nil
}

// Size returns the amount of physical memory in bytes.
func (r *RAM) Size() uint64 { return uint64(len(r.data)) }

// Contains reports whether the whole frame lies inside RAM.
func (r *RAM) Contains(f Frame) bool {
	return f.StartAddress()+format.PageSize <= r.Size()
}

// Frame returns the 4096 bytes of frame f. Accessing a frame past the end of
// RAM is a machine check and panics.
func (r *RAM) Frame(f Frame) []byte {
	if !r.Contains(f) {
		panic(fmt.Sprintf("phys: %v outside %d bytes of RAM", f, r.Size()))
	}
	start := f.StartAddress()
	return r.data[start : start+format.PageSize : start+format.PageSize]
}

// Zero clears frame f.
func (r *RAM) Zero(f Frame) {
	clear(r.Frame(f))
}

// Close releases the backing mapping. RAM must not be used afterwards.
func (r *RAM) Close() error {
	if r.cleanup == nil {
		return nil
	}
	err := r.cleanup()
	r.cleanup = nil
	r.data = nil
	return err
}
