package kernel

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/mem/heap"
	"github.com/crysalis-os/kheap/mem/paging"
	"github.com/crysalis-os/kheap/mem/phys"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvStrategy     = "KHEAP_STRATEGY"
	EnvHeapSize     = "KHEAP_HEAP_SIZE"
	EnvCheckLayouts = "KHEAP_CHECK_LAYOUTS"
	EnvLogAlloc     = "KHEAP_LOG_ALLOC"
)

// Config describes the simulated machine and its heap.
type Config struct {
	// HeapStart is the virtual address of the heap window.
	HeapStart uint64

	// HeapSize is the length of the heap window in bytes.
	HeapSize uint64

	// Strategy selects the allocator behind the global lock.
	Strategy heap.Strategy

	// Classes are the block sizes of the segregated allocator.
	Classes []uint64

	// CheckLayouts records live blocks and panics on mismatched frees.
	CheckLayouts bool

	// LogAlloc turns on allocation-path debug logging.
	LogAlloc bool

	// RAMSize is the amount of simulated physical memory.
	RAMSize uint64

	// MemoryMap overrides the bootloader memory map. Nil means
	// phys.DefaultMemoryMap(RAMSize).
	MemoryMap phys.MemoryMap
}

// DefaultConfig returns the standard kernel heap: 100 KiB at
// 0x4444_4444_0000, segregated free lists, 4 MiB of RAM.
func DefaultConfig() Config {
	return Config{
		HeapStart: format.HeapStart,
		HeapSize:  format.HeapSize,
		Strategy:  heap.StrategySegregated,
		Classes:   slices.Clone(format.DefaultSizeClasses),
		RAMSize:   4 * format.MiB,
	}
}

// Map returns the memory map the machine boots with.
func (c Config) Map() phys.MemoryMap {
	if c.MemoryMap != nil {
		return c.MemoryMap
	}
	return phys.DefaultMemoryMap(c.RAMSize)
}

// Validate checks the heap window, the class table and the memory map.
func (c Config) Validate() error {
	if c.HeapSize == 0 {
		return fmt.Errorf("heap size 0: %w", ErrBadConfig)
	}
	end, ok := buf.AddOverflowSafe(c.HeapStart, c.HeapSize-1)
	if !ok || !paging.IsCanonical(c.HeapStart) || !paging.IsCanonical(end) {
		return fmt.Errorf("heap window %#x+%d: %w", c.HeapStart, c.HeapSize, ErrBadConfig)
	}
	if c.Strategy == heap.StrategySegregated {
		if _, err := heap.NewClassTable(c.Classes); err != nil {
			return fmt.Errorf("%w: %w", ErrBadConfig, err)
		}
	}
	m := c.Map()
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	if m.End() > c.RAMSize {
		return fmt.Errorf("memory map ends at %#x past %d bytes of RAM: %w", m.End(), c.RAMSize, ErrBadConfig)
	}
	return nil
}

// ConfigFromEnv returns DefaultConfig with the KHEAP_* environment overrides
// applied. An unparsable value is an error.
func ConfigFromEnv() (Config, error) {
	return applyEnv(DefaultConfig(), os.LookupEnv)
}

func applyEnv(c Config, lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvStrategy); ok {
		s, err := heap.ParseStrategy(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w: %w", EnvStrategy, ErrBadConfig, err)
		}
		c.Strategy = s
	}
	if v, ok := lookup(EnvHeapSize); ok {
		n, err := ParseSize(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvHeapSize, err)
		}
		c.HeapSize = n
	}
	if v, ok := lookup(EnvCheckLayouts); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%s=%q: %w", EnvCheckLayouts, v, ErrBadConfig)
		}
		c.CheckLayouts = b
	}
	if v, ok := lookup(EnvLogAlloc); ok {
		c.LogAlloc = v != "" && v != "0" && !strings.EqualFold(v, "false")
	}
	return c, nil
}

var sizeSuffixes = []struct {
	suffix string
	mult   uint64
}{
	{"KiB", format.KiB},
	{"MiB", format.MiB},
	{"K", format.KiB},
	{"M", format.MiB},
}

// ParseSize parses a byte count: decimal or 0x-prefixed hex, optionally
// followed by K/KiB or M/MiB.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	mult := uint64(1)
	for _, sx := range sizeSuffixes {
		if rest, ok := strings.CutSuffix(s, sx.suffix); ok {
			s, mult = strings.TrimSpace(rest), sx.mult
			break
		}
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, ErrBadConfig)
	}
	v, ok := buf.MulOverflowSafe(n, mult)
	if !ok || v == 0 {
		return 0, fmt.Errorf("size %q: %w", s, ErrBadConfig)
	}
	return v, nil
}
