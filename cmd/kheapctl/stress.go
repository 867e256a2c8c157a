package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/kalloc"
	"github.com/crysalis-os/kheap/kernel"
)

var (
	stressIterations uint64
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().Uint64Var(&stressIterations, "iterations", format.HeapSize, "Box count for many-boxes and long-lived")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress [workload...]",
		Short: "Run heap workloads and report allocator statistics",
		Long: `The stress command boots a machine and runs heap workloads against it:

  simple       two boxed values
  large-vec    a vector grown to 1000 elements, then summed
  many-boxes   allocate and free one box per iteration
  long-lived   many-boxes while one box stays live throughout

With no arguments every workload runs, each on a fresh machine.

Example:
  kheapctl stress
  kheapctl stress many-boxes --iterations 1000000
  kheapctl stress large-vec --strategy bump --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(args)
		},
	}
}

type workload func(h kalloc.Heap, iterations uint64) error

var workloads = map[string]workload{
	"simple":     simpleWorkload,
	"large-vec":  largeVecWorkload,
	"many-boxes": manyBoxesWorkload,
	"long-lived": longLivedWorkload,
}

var workloadOrder = []string{"simple", "large-vec", "many-boxes", "long-lived"}

func simpleWorkload(h kalloc.Heap, _ uint64) error {
	a, err := kalloc.NewBox(h, 41)
	if err != nil {
		return err
	}
	defer a.Free()
	b, err := kalloc.NewBox(h, 13)
	if err != nil {
		return err
	}
	defer b.Free()
	if a.Get() != 41 || b.Get() != 13 {
		return fmt.Errorf("boxes hold %d, %d; want 41, 13", a.Get(), b.Get())
	}
	return nil
}

func largeVecWorkload(h kalloc.Heap, _ uint64) error {
	const n = 1000
	v := kalloc.NewVec(h)
	defer v.Free()
	for i := range uint64(n) {
		if err := v.Push(i); err != nil {
			return fmt.Errorf("push %d: %w", i, err)
		}
	}
	if got, want := v.Sum(), uint64((n-1)*n/2); got != want {
		return fmt.Errorf("sum %d, want %d", got, want)
	}
	return nil
}

func manyBoxesWorkload(h kalloc.Heap, iterations uint64) error {
	for i := range iterations {
		b, err := kalloc.NewBox(h, i)
		if err != nil {
			return fmt.Errorf("box %d: %w", i, err)
		}
		if b.Get() != i {
			return fmt.Errorf("box %d holds %d", i, b.Get())
		}
		b.Free()
	}
	return nil
}

func longLivedWorkload(h kalloc.Heap, iterations uint64) error {
	longLived, err := kalloc.NewBox(h, 1)
	if err != nil {
		return err
	}
	defer longLived.Free()
	if err := manyBoxesWorkload(h, iterations); err != nil {
		return err
	}
	if longLived.Get() != 1 {
		return fmt.Errorf("long-lived box holds %d", longLived.Get())
	}
	return nil
}

// StressResult is the outcome of one workload.
type StressResult struct {
	Workload  string        `json:"workload"`
	Strategy  string        `json:"strategy"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
	AllocCall int           `json:"alloc_calls"`
	FastPath  int           `json:"fast_path"`
	Refills   int           `json:"refills"`
	Oversized int           `json:"oversized"`
	UsedBytes uint64        `json:"used_bytes"`
	FreeBytes uint64        `json:"free_bytes"`
	Largest   uint64        `json:"largest_span"`
}

func runWorkload(name string) (StressResult, error) {
	w, ok := workloads[name]
	if !ok {
		return StressResult{}, fmt.Errorf("unknown workload %q (have %s)", name, strings.Join(workloadOrder, ", "))
	}
	m, err := bootMachine()
	if err != nil {
		return StressResult{}, err
	}
	defer m.Close()

	start := time.Now()
	werr := w(m.Heap, stressIterations)
	res := StressResult{Workload: name, Strategy: m.Heap.Strategy.String(), Duration: time.Since(start)}
	if werr != nil {
		res.Error = werr.Error()
	}
	fillStats(&res, m.Heap.Snapshot())
	return res, nil
}

func fillStats(res *StressResult, s kernel.Snapshot) {
	res.AllocCall = s.Stats.AllocCalls
	res.FastPath = s.Stats.FastPath
	res.Refills = s.Stats.Refills
	res.Oversized = s.Stats.Oversized
	res.UsedBytes = s.UsedBytes
	res.FreeBytes = s.FreeBytes
	res.Largest = s.LargestSpan
}

func runStress(args []string) error {
	names := args
	if len(names) == 0 {
		names = workloadOrder
	}

	var results []StressResult
	failed := 0
	for _, name := range names {
		printVerbose("Running %s...\n", name)
		res, err := runWorkload(name)
		if err != nil {
			return err
		}
		if res.Error != "" {
			failed++
		}
		results = append(results, res)
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		printInfo("\n%s\n", sectionStyle.Render(fmt.Sprintf("%-12s %-12s %10s %8s %8s %8s %10s %10s",
			"WORKLOAD", "STRATEGY", "TIME", "ALLOCS", "FAST", "REFILLS", "USED", "LARGEST")))
		for _, r := range results {
			status := ""
			if r.Error != "" {
				status = "  " + failStyle.Render("FAILED: "+r.Error)
			}
			printInfo("%-12s %-12s %10s %8d %8d %8d %10s %10s%s\n",
				r.Workload, r.Strategy, r.Duration.Round(time.Microsecond), r.AllocCall, r.FastPath, r.Refills,
				formatBytes(r.UsedBytes), formatBytes(r.Largest), status)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d workloads failed", failed, len(results))
	}
	return nil
}
