package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crysalis-os/kheap/internal/klog"
	"github.com/crysalis-os/kheap/kernel"
	"github.com/crysalis-os/kheap/mem/heap"
)

var (
	// Global flags
	verbose      bool
	quiet        bool
	jsonOut      bool
	noColor      bool
	logLevel     string
	strategyName string
	heapSize     string
	checkLayouts bool
)

var rootCmd = &cobra.Command{
	Use:   "kheapctl",
	Short: "Boot and inspect the simulated kernel heap",
	Long: `kheapctl boots a simulated machine, maps the kernel heap window page by
page, and lets you inspect the result: the boot memory map and frame usage,
allocator behaviour under the standard heap workloads, and the raw contents of
the heap with its free lists.

Flags override the KHEAP_STRATEGY, KHEAP_HEAP_SIZE and KHEAP_CHECK_LAYOUTS
environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupColor()
		return setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log to stderr at this level (debug, info, warn, error)")
	rootCmd.PersistentFlags().
		StringVar(&strategyName, "strategy", "", "Allocator strategy (segregated, linked-list, bump)")
	rootCmd.PersistentFlags().
		StringVar(&heapSize, "heap-size", "", "Heap window size (e.g. 100KiB, 0x19000)")
	rootCmd.PersistentFlags().
		BoolVar(&checkLayouts, "check-layouts", false, "Panic on frees with a mismatched layout")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// setupLogging enables the kernel logger when --log-level or --verbose is set.
func setupLogging() error {
	if logLevel == "" && !verbose {
		klog.Init(klog.Options{Enabled: false})
		return nil
	}
	name := logLevel
	if name == "" {
		name = "debug"
	}
	level, ok := klog.ParseLevel(name)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	klog.Init(klog.Options{Enabled: true, Writer: os.Stderr, Level: level, JSON: jsonOut})
	return nil
}

// machineConfig builds the boot configuration: defaults, then environment,
// then flags.
func machineConfig() (kernel.Config, error) {
	cfg, err := kernel.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	if strategyName != "" {
		s, err := heap.ParseStrategy(strategyName)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = s
	}
	if heapSize != "" {
		n, err := kernel.ParseSize(heapSize)
		if err != nil {
			return cfg, err
		}
		cfg.HeapSize = n
	}
	if checkLayouts {
		cfg.CheckLayouts = true
	}
	return cfg, nil
}

// bootMachine boots an independent machine from the flags.
func bootMachine() (*kernel.Machine, error) {
	cfg, err := machineConfig()
	if err != nil {
		return nil, err
	}
	printVerbose("Booting: strategy=%s heap=%s at %#x\n", cfg.Strategy, formatBytes(cfg.HeapSize), cfg.HeapStart)
	m, err := kernel.NewMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("boot failed: %w", err)
	}
	return m, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
