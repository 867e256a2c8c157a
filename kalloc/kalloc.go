// Package kalloc holds the heap-backed data structures kernel code builds on:
// boxed values, growable vectors and reference-counted cells. Every value
// lives in heap memory and is reached through its address, never through a
// Go pointer.
package kalloc

import (
	"github.com/crysalis-os/kheap/mem"
	"github.com/crysalis-os/kheap/mem/heap"
)

// Heap is an allocator together with the memory its blocks live in.
// *kernel.Heap implements it.
type Heap interface {
	heap.GlobalAlloc
	mem.Memory
}

type joined struct {
	heap.GlobalAlloc
	mem.Memory
}

// On combines an allocator and a memory view into a Heap.
func On(a heap.GlobalAlloc, m mem.Memory) Heap { return joined{a, m} }

const wordSize = 8
