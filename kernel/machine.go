package kernel

import (
	"errors"
	"fmt"

	"github.com/crysalis-os/kheap/internal/klog"
	"github.com/crysalis-os/kheap/kernel/interrupts"
	"github.com/crysalis-os/kheap/mem/paging"
	"github.com/crysalis-os/kheap/mem/phys"
	"github.com/crysalis-os/kheap/mem/region"
)

// Machine is one booted simulated computer: physical RAM, the frame source
// over its memory map, the active page table, the interrupt controller and
// the kernel heap.
type Machine struct {
	Config       Config
	MemoryMap    phys.MemoryMap
	RAM          *phys.RAM
	Frames       *phys.BootFrameSource
	PageTable    *paging.PageTable
	AddressSpace *paging.AddressSpace
	Interrupts   *interrupts.Controller
	Heap         *Heap

	// HeapFrames and TableFrames split the frames taken during boot between
	// heap pages and page tables (root included).
	HeapFrames  uint64
	TableFrames uint64
}

// NewMachine boots a machine with its own heap. It does not touch the global
// allocator, so any number of machines can coexist.
func NewMachine(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LogAlloc {
		klog.SetAllocLogging(true)
	}

	ram, err := phys.NewRAM(cfg.RAMSize)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		Config:     cfg,
		MemoryMap:  cfg.Map(),
		RAM:        ram,
		Interrupts: interrupts.New(),
	}
	m.Frames = phys.NewBootFrameSource(m.MemoryMap)

	m.PageTable, err = paging.Create(ram, m.Frames, paging.NewTLB(0))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("kernel: create page table: %w", err), ram.Close())
	}
	m.AddressSpace = paging.NewAddressSpace(m.PageTable)

	m.Heap, err = NewHeap(cfg, m.PageTable, m.Frames, m.Interrupts)
	if err != nil {
		return nil, errors.Join(err, ram.Close())
	}

	m.TableFrames = m.PageTable.Tables() + 1
	m.HeapFrames = m.Frames.Allocated() - m.TableFrames
	klog.Info("machine booted",
		"ram", cfg.RAMSize,
		"frames_used", m.Frames.Allocated(),
		"heap_frames", m.HeapFrames,
		"table_frames", m.TableFrames,
	)
	return m, nil
}

// Boot builds a machine and installs its heap as the global allocator. It
// fails with ErrHeapInitialized when a global heap already exists.
func Boot(cfg Config) (*Machine, error) {
	var m *Machine
	err := initGlobal(func() (*Heap, error) {
		var err error
		if m, err = NewMachine(cfg); err != nil {
			return nil, err
		}
		return m.Heap, nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Region returns the mapped heap window.
func (m *Machine) Region() region.Region { return m.Heap.Region }

// MappedRanges returns the contiguous virtual ranges currently mapped.
func (m *Machine) MappedRanges() []paging.Range { return m.PageTable.MappedRanges() }

// Close releases physical memory. The machine's heap stops being the global
// allocator if it was one.
func (m *Machine) Close() error {
	uninstall(m.Heap)
	return m.RAM.Close()
}
