package kernel

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/klog"
	"github.com/crysalis-os/kheap/mem"
	"github.com/crysalis-os/kheap/mem/heap"
	"github.com/crysalis-os/kheap/mem/paging"
	"github.com/crysalis-os/kheap/mem/phys"
	"github.com/crysalis-os/kheap/mem/region"
)

// Heap is a mapped and initialized kernel heap: the locked allocator plus the
// virtual memory view its blocks live in. It satisfies both heap.GlobalAlloc
// and mem.Memory, which is all a heap consumer needs. Both halves are safe
// for concurrent use.
type Heap struct {
	*heap.Locked
	mem.Memory

	Region   region.Region
	Strategy heap.Strategy
}

// NewHeap maps cfg's heap window through pt, taking heap frames and table
// frames from frames, and initializes the configured allocator over it.
// mask guards each critical section; nil means heap.NoMask.
func NewHeap(cfg Config, pt *paging.PageTable, frames phys.FrameSource, mask heap.InterruptMask) (*Heap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg, err := region.Init(pt, frames, cfg.HeapStart, cfg.HeapSize)
	if err != nil {
		return nil, err
	}

	as := paging.NewAddressSpace(pt)
	var classes *heap.ClassTable
	if cfg.Strategy == heap.StrategySegregated {
		if classes, err = heap.NewClassTable(cfg.Classes); err != nil {
			return nil, err
		}
	}
	backend, err := heap.NewBackend(cfg.Strategy, as, classes)
	if err != nil {
		return nil, err
	}

	opts := []heap.Option{heap.WithInterruptMask(mask)}
	if cfg.CheckLayouts {
		opts = append(opts, heap.WithLayoutCheck())
	}
	locked := heap.NewLocked(backend, opts...)
	if err := locked.Init(reg.Start, reg.Size); err != nil {
		return nil, fmt.Errorf("kernel: init %v allocator: %w", cfg.Strategy, err)
	}

	klog.Info("heap allocator initialized",
		"strategy", cfg.Strategy.String(),
		"start", fmt.Sprintf("%#x", reg.Start),
		"size", reg.Size,
		"check_layouts", cfg.CheckLayouts,
	)
	return &Heap{Locked: locked, Memory: as, Region: reg, Strategy: cfg.Strategy}, nil
}

// Snapshot is a consistent view of the heap's internal state.
type Snapshot struct {
	Strategy heap.Strategy
	Stats    heap.Stats // segregated strategy only

	// Classes and FreeLists are parallel: FreeLists[i] blocks of Classes[i]
	// bytes are waiting for reuse. Segregated strategy only.
	Classes   []uint64
	FreeLists []int

	// Spans are the free spans of the first-fit heap (not for bump).
	Spans       []heap.Span
	UsedBytes   uint64
	FreeBytes   uint64
	LargestSpan uint64 // biggest request the backing heap can still serve

	// BumpNext and BumpLive describe the bump strategy.
	BumpNext uint64
	BumpLive int
}

// Snapshot inspects the allocator under its lock.
func (h *Heap) Snapshot() Snapshot {
	s := Snapshot{Strategy: h.Strategy}
	h.With(func(b heap.Backend) {
		switch b := b.(type) {
		case *heap.Allocator:
			s.Stats = b.Stats()
			s.Classes = b.Classes().Sizes()
			s.FreeLists = make([]int, len(s.Classes))
			for i := range s.Classes {
				s.FreeLists[i] = b.FreeListLen(i)
			}
			s.fillFirstFit(b.Backing())
		case *heap.LinkedList:
			s.fillFirstFit(b.Heap())
		case *heap.Bump:
			s.BumpNext = b.Next()
			s.BumpLive = b.Live()
			s.FreeBytes = b.Remaining()
			s.LargestSpan = b.Remaining()
			s.UsedBytes = h.Region.Size - b.Remaining()
		}
	})
	return s
}

func (s *Snapshot) fillFirstFit(ff *heap.FirstFit) {
	s.Spans = ff.Spans()
	s.UsedBytes = ff.UsedBytes()
	s.FreeBytes = ff.FreeBytes()
	s.LargestSpan = ff.LargestSpan()
}
