package paging

import (
	"slices"

	"github.com/crysalis-os/kheap/internal/format"
)

// Range is a contiguous run of mapped virtual memory [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the range size in bytes.
func (r Range) Len() uint64 { return r.End - r.Start }

// Ranges sorts pages and merges consecutive ones into ranges.
//
// Pages: [0x1000, 0x2000, 0x3000, 0x6000] → Ranges: [0x1000-0x4000, 0x6000-0x7000]
func Ranges(pages []Page) []Range {
	if len(pages) == 0 {
		return nil
	}
	sorted := slices.Clone(pages)
	slices.Sort(sorted)

	merged := make([]Range, 0, 4)
	current := Range{Start: sorted[0].StartAddress(), End: sorted[0].StartAddress() + format.PageSize}
	for _, p := range sorted[1:] {
		start := p.StartAddress()
		// Overlapping (duplicate) or adjacent: extend current.
		if start <= current.End {
			current.End = max(current.End, start+format.PageSize)
			continue
		}
		merged = append(merged, current)
		current = Range{Start: start, End: start + format.PageSize}
	}
	return append(merged, current)
}

// MappedRanges returns every present mapping of pt as coalesced virtual ranges.
func (pt *PageTable) MappedRanges() []Range {
	var pages []Page
	pt.Walk(func(m Mapping) bool {
		pages = append(pages, m.Page)
		return true
	})
	return Ranges(pages)
}
