package kalloc

import (
	"fmt"

	"github.com/crysalis-os/kheap/mem/heap"
)

var boxLayout = heap.Layout{Size: wordSize, Align: wordSize}

// Box is one uint64 in its own heap block.
type Box struct {
	h     Heap
	addr  uint64
	freed bool
}

// NewBox allocates a block and stores v in it.
func NewBox(h Heap, v uint64) (*Box, error) {
	addr, err := h.Alloc(boxLayout)
	if err != nil {
		return nil, err
	}
	h.Store64(addr, v)
	return &Box{h: h, addr: addr}, nil
}

// Addr returns the heap address of the value.
func (b *Box) Addr() uint64 { return b.addr }

// Get loads the value.
func (b *Box) Get() uint64 {
	b.check("get")
	return b.h.Load64(b.addr)
}

// Set stores v.
func (b *Box) Set(v uint64) {
	b.check("set")
	b.h.Store64(b.addr, v)
}

// Free returns the block to the heap. The box must not be used afterwards.
func (b *Box) Free() {
	b.check("free")
	b.freed = true
	b.h.Dealloc(b.addr, boxLayout)
}

func (b *Box) check(op string) {
	if b.freed {
		panic(fmt.Sprintf("kalloc: %s of freed box %#x", op, b.addr))
	}
}
