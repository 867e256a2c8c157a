package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/crysalis-os/kheap/kernel"
	"github.com/crysalis-os/kheap/mem/heap"
)

var (
	dumpAllocs []string
	dumpFree   int
	dumpBytes  uint64
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringSliceVar(&dumpAllocs, "alloc", nil, "Allocate size[:align] before dumping (repeatable)")
	cmd.Flags().IntVar(&dumpFree, "free", 0, "Free the first N allocations again")
	cmd.Flags().Uint64Var(&dumpBytes, "bytes", 256, "Bytes of heap memory to hexdump")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Show free lists, free spans and raw heap memory",
		Long: `The dump command boots a machine, optionally performs some allocations
and frees, then prints the allocator state and a hexdump of the start of the
heap. Bytes are rendered with the VGA text-mode code page (CP437).

Freed small blocks show their free-list link in their first 8 bytes.

Example:
  kheapctl dump --alloc 8 --alloc 8 --alloc 24:8 --free 2
  kheapctl dump --alloc 3000 --bytes 64 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump()
		},
	}
}

// parseAllocSpec parses "size" or "size:align". Align defaults to 8.
func parseAllocSpec(spec string) (heap.Layout, error) {
	sizeStr, alignStr, hasAlign := strings.Cut(strings.TrimSpace(spec), ":")
	size, err := strconv.ParseUint(sizeStr, 0, 64)
	if err != nil {
		return heap.Layout{}, fmt.Errorf("alloc %q: bad size: %w", spec, err)
	}
	align := uint64(8)
	if hasAlign {
		if align, err = strconv.ParseUint(alignStr, 0, 64); err != nil {
			return heap.Layout{}, fmt.Errorf("alloc %q: bad align: %w", spec, err)
		}
	}
	l, err := heap.NewLayout(size, align)
	if err != nil {
		return heap.Layout{}, fmt.Errorf("alloc %q: %w", spec, err)
	}
	return l, nil
}

// AllocEntry is one allocation made by dump.
type AllocEntry struct {
	Addr  uint64 `json:"addr"`
	Size  uint64 `json:"size"`
	Align uint64 `json:"align"`
	Freed bool   `json:"freed"`
}

// ClassEntry is the free-list length of one size class.
type ClassEntry struct {
	Size uint64 `json:"size"`
	Free int    `json:"free"`
}

// DumpReport is the allocator state after the requested operations.
type DumpReport struct {
	Strategy  string       `json:"strategy"`
	Allocs    []AllocEntry `json:"allocs"`
	Classes   []ClassEntry `json:"classes,omitempty"`
	Spans       []heap.Span  `json:"spans,omitempty"`
	UsedBytes   uint64       `json:"used_bytes"`
	FreeBytes   uint64       `json:"free_bytes"`
	LargestSpan uint64       `json:"largest_span"`
	Stats       string       `json:"stats,omitempty"`
	Hexdump     []string     `json:"hexdump"`
}

func runDump() error {
	layouts := make([]heap.Layout, 0, len(dumpAllocs))
	for _, spec := range dumpAllocs {
		l, err := parseAllocSpec(spec)
		if err != nil {
			return err
		}
		layouts = append(layouts, l)
	}
	if dumpFree < 0 || dumpFree > len(layouts) {
		return fmt.Errorf("--free %d: only %d allocations", dumpFree, len(layouts))
	}

	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer m.Close()

	r := DumpReport{Strategy: m.Heap.Strategy.String()}
	for _, l := range layouts {
		addr, err := m.Heap.Alloc(l)
		if err != nil {
			return fmt.Errorf("alloc %v: %w", l, err)
		}
		printVerbose("alloc %v -> %#x\n", l, addr)
		r.Allocs = append(r.Allocs, AllocEntry{Addr: addr, Size: l.Size, Align: l.Align})
	}
	for i := range dumpFree {
		e := &r.Allocs[i]
		m.Heap.Dealloc(e.Addr, heap.Layout{Size: e.Size, Align: e.Align})
		e.Freed = true
		printVerbose("free %#x\n", e.Addr)
	}

	snap := m.Heap.Snapshot()
	for i, size := range snap.Classes {
		r.Classes = append(r.Classes, ClassEntry{Size: size, Free: snap.FreeLists[i]})
	}
	r.Spans = snap.Spans
	r.UsedBytes, r.FreeBytes = snap.UsedBytes, snap.FreeBytes
	r.LargestSpan = snap.LargestSpan
	if snap.Strategy == heap.StrategySegregated {
		r.Stats = snap.Stats.String()
	}
	r.Hexdump = hexdump(m, min(dumpBytes, m.Region().Size))

	if jsonOut {
		return printJSON(r)
	}
	printDump(r)
	return nil
}

func printDump(r DumpReport) {
	printInfo("\n%s\n", titleStyle.Render(fmt.Sprintf("Heap Dump (%s)", r.Strategy)))
	printInfo("%s\n\n", mutedStyle.Render(strings.Repeat("=", 40)))

	if len(r.Allocs) > 0 {
		printInfo("%s\n", sectionStyle.Render("Allocations:"))
		for _, a := range r.Allocs {
			state := liveStyle.Render("live")
			if a.Freed {
				state = freedStyle.Render("freed")
			}
			printInfo("  %#x  size %-6d align %-5d %s\n", a.Addr, a.Size, a.Align, state)
		}
		printInfo("\n")
	}

	if len(r.Classes) > 0 {
		printInfo("%s\n", sectionStyle.Render("Free Lists:"))
		for _, c := range r.Classes {
			printInfo("  class %-5d %d free\n", c.Size, c.Free)
		}
		printInfo("\n")
	}

	printInfo("%s %s used, %s free, largest span %s\n", sectionStyle.Render("Backing Heap:"),
		formatBytes(r.UsedBytes), formatBytes(r.FreeBytes), formatBytes(r.LargestSpan))
	for _, s := range r.Spans {
		printInfo("  span %#x - %#x  %s\n", s.Start, s.End(), formatBytes(s.Len))
	}
	if r.Stats != "" {
		printInfo("\n%s %s\n", sectionStyle.Render("Stats:"), r.Stats)
	}

	printInfo("\n%s\n", sectionStyle.Render("Memory:"))
	for _, line := range r.Hexdump {
		printInfo("  %s\n", line)
	}
}

// hexdump renders n bytes from the heap start, 16 per line.
func hexdump(m *kernel.Machine, n uint64) []string {
	data := make([]byte, n)
	m.Heap.Read(m.Region().Start, data)

	var lines []string
	for off := uint64(0); off < n; off += 16 {
		row := data[off:min(off+16, n)]
		var hex strings.Builder
		for i := range 16 {
			if i < len(row) {
				fmt.Fprintf(&hex, "%02x ", row[i])
			} else {
				hex.WriteString("   ")
			}
			if i == 7 {
				hex.WriteByte(' ')
			}
		}
		lines = append(lines, fmt.Sprintf("%#x  %s |%s|", m.Region().Start+off, hex.String(), cp437(row)))
	}
	return lines
}

// cp437 renders bytes as VGA console glyphs; control codes print as '.'.
func cp437(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		r := charmap.CodePage437.DecodeByte(c)
		if r < 0x20 || r == 0x7f {
			r = '.'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
