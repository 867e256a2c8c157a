package phys

import (
	"fmt"

	"github.com/crysalis-os/kheap/internal/format"
)

// RegionKind classifies a physical memory region reported by the bootloader.
type RegionKind uint8

const (
	Usable RegionKind = iota
	Reserved
	Kernel
	PageTable
	Bootloader
)

var regionKindNames = [...]string{
	Usable:     "usable",
	Reserved:   "reserved",
	Kernel:     "kernel",
	PageTable:  "page-table",
	Bootloader: "bootloader",
}

func (k RegionKind) String() string {
	if int(k) < len(regionKindNames) {
		return regionKindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Region is a physical address range [Start, End) of one kind.
type Region struct {
	Start uint64
	End   uint64
	Kind  RegionKind
}

// Len returns the region size in bytes.
func (r Region) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Frames returns the number of whole frames the region contributes.
func (r Region) Frames() uint64 {
	first, ok := format.AlignUp(r.Start, format.PageSize)
	if !ok || first >= r.End {
		return 0
	}
	return (r.End - first) / format.PageSize
}

// MemoryMap is the list of physical regions handed over at boot.
type MemoryMap []Region

// UsableBytes sums the length of all usable regions.
func (m MemoryMap) UsableBytes() uint64 {
	var total uint64
	for _, r := range m {
		if r.Kind == Usable {
			total += r.Len()
		}
	}
	return total
}

// UsableFrames sums the whole frames of all usable regions.
func (m MemoryMap) UsableFrames() uint64 {
	var total uint64
	for _, r := range m {
		if r.Kind == Usable {
			total += r.Frames()
		}
	}
	return total
}

// End returns the highest region end address in the map.
func (m MemoryMap) End() uint64 {
	var end uint64
	for _, r := range m {
		end = max(end, r.End)
	}
	return end
}

// Validate checks that regions are well formed and do not overlap.
func (m MemoryMap) Validate() error {
	for i, r := range m {
		if r.End <= r.Start {
			return fmt.Errorf("region %d [%#x, %#x): %w", i, r.Start, r.End, ErrBadMemoryMap)
		}
		for j := range i {
			o := m[j]
			if r.Start < o.End && o.Start < r.End {
				return fmt.Errorf("regions %d and %d overlap: %w", j, i, ErrBadMemoryMap)
			}
		}
	}
	return nil
}

// DefaultMemoryMap describes a machine with ramSize bytes of RAM: the first
// MiB is firmware and kernel image, the rest is usable.
func DefaultMemoryMap(ramSize uint64) MemoryMap {
	const low = 1 * format.MiB
	m := MemoryMap{
		{Start: 0, End: 0x1000, Kind: Reserved},
		{Start: 0x1000, End: 0x9f000, Kind: Bootloader},
		{Start: 0x9f000, End: 0x100000, Kind: Reserved},
	}
	if ramSize > low {
		m = append(m, Region{Start: low, End: ramSize, Kind: Usable})
	}
	return m
}
