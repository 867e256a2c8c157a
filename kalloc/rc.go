package kalloc

import (
	"fmt"

	"github.com/crysalis-os/kheap/mem/heap"
)

// rcLayout holds the strong count followed by the value.
var rcLayout = heap.Layout{Size: 2 * wordSize, Align: wordSize}

// Rc is one handle to a reference-counted uint64. The count lives in the heap
// block next to the value; the block is freed when the last handle is
// released.
type Rc struct {
	h        Heap
	addr     uint64
	released bool
}

// NewRc allocates a cell holding v with a count of one.
func NewRc(h Heap, v uint64) (*Rc, error) {
	addr, err := h.Alloc(rcLayout)
	if err != nil {
		return nil, err
	}
	h.Store64(addr, 1)
	h.Store64(addr+wordSize, v)
	return &Rc{h: h, addr: addr}, nil
}

// Addr returns the heap address of the cell (count first, then value).
func (r *Rc) Addr() uint64 { return r.addr }

// Clone returns a new handle to the same cell.
func (r *Rc) Clone() *Rc {
	r.check("clone")
	r.h.Store64(r.addr, r.h.Load64(r.addr)+1)
	return &Rc{h: r.h, addr: r.addr}
}

// Get loads the shared value.
func (r *Rc) Get() uint64 {
	r.check("get")
	return r.h.Load64(r.addr + wordSize)
}

// Count returns the number of live handles.
func (r *Rc) Count() uint64 {
	r.check("count")
	return r.h.Load64(r.addr)
}

// Release drops this handle and frees the cell when it was the last one.
// Releasing a handle twice panics.
func (r *Rc) Release() {
	r.check("release")
	r.released = true
	n := r.h.Load64(r.addr)
	if n == 0 {
		panic(fmt.Sprintf("kalloc: rc %#x released past zero", r.addr))
	}
	n--
	if n == 0 {
		r.h.Dealloc(r.addr, rcLayout)
		return
	}
	r.h.Store64(r.addr, n)
}

func (r *Rc) check(op string) {
	if r.released {
		panic(fmt.Sprintf("kalloc: %s of released rc %#x", op, r.addr))
	}
}
