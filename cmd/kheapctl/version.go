package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crysalis-os/kheap/kernel"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// VersionInfo is the build identity plus the heap defaults compiled into it.
type VersionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	Built     string   `json:"built"`
	Strategy  string   `json:"default_strategy"`
	HeapStart uint64   `json:"heap_start"`
	HeapSize  uint64   `json:"heap_size"`
	Classes   []uint64 `json:"size_classes"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and heap defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	cfg := kernel.DefaultConfig()
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		Built:     date,
		Strategy:  cfg.Strategy.String(),
		HeapStart: cfg.HeapStart,
		HeapSize:  cfg.HeapSize,
		Classes:   cfg.Classes,
	}
	if jsonOut {
		return printJSON(info)
	}

	classes := make([]string, len(info.Classes))
	for i, c := range info.Classes {
		classes[i] = fmt.Sprint(c)
	}
	fmt.Printf("kheapctl %s\n", info.Version)
	fmt.Printf("  commit: %s\n", info.Commit)
	fmt.Printf("  built: %s\n", info.Built)
	fmt.Printf("  heap: %s at %#x, %s\n", info.Strategy, info.HeapStart, formatBytes(info.HeapSize))
	fmt.Printf("  classes: %s\n", strings.Join(classes, " "))
	return nil
}
