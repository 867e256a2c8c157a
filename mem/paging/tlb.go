package paging

import (
	"sync"

	"github.com/crysalis-os/kheap/mem/phys"
)

// DefaultTLBEntries is the capacity of a TLB created by NewTLB(0).
const DefaultTLBEntries = 64

type tlbEntry struct {
	frame phys.Frame
	flags Flags
}

// TLB is a small, fully associative translation cache with FIFO eviction.
// It is not coherent with the page tables. All methods are safe for
// concurrent use.
type TLB struct {
	mu      sync.Mutex
	entries map[Page]tlbEntry
	order   []Page // insertion order, oldest first
	cap     int

	stats TLBStats
}

// TLBStats counts translation cache activity.
type TLBStats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64 // single-page flushes that removed an entry
	FullFlushes   uint64
}

// NewTLB creates a TLB holding up to capacity translations (DefaultTLBEntries if <= 0).
func NewTLB(capacity int) *TLB {
	if capacity <= 0 {
		capacity = DefaultTLBEntries
	}
	return &TLB{
		entries: make(map[Page]tlbEntry, capacity),
		order:   make([]Page, 0, capacity),
		cap:     capacity,
	}
}

// Lookup returns the cached translation for p.
func (t *TLB) Lookup(p Page) (phys.Frame, Flags, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[p]
	if !ok {
		t.stats.Misses++
		return 0, 0, false
	}
	t.stats.Hits++
	return e.frame, e.flags, true
}

// Insert caches a translation, evicting the oldest one when full.
func (t *TLB) Insert(p Page, f phys.Frame, flags Flags) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[p]; !ok {
		if len(t.order) >= t.cap {
			oldest := t.order[0]
			t.order = t.order[1:]
			delete(t.entries, oldest)
		}
		t.order = append(t.order, p)
	}
	t.entries[p] = tlbEntry{frame: f, flags: flags}
}

// Flush drops the cached translation for p, if any.
func (t *TLB) Flush(p Page) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[p]; !ok {
		return
	}
	delete(t.entries, p)
	for i, q := range t.order {
		if q == p {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.stats.Invalidations++
}

// FlushAll drops every cached translation.
func (t *TLB) FlushAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.entries)
	t.order = t.order[:0]
	t.stats.FullFlushes++
}

// Len returns the number of cached translations.
func (t *TLB) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stats returns a snapshot of the counters.
func (t *TLB) Stats() TLBStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
