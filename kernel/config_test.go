package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crysalis-os/kheap/internal/klog"
	"github.com/crysalis-os/kheap/kernel"
	"github.com/crysalis-os/kheap/mem/heap"
	"github.com/crysalis-os/kheap/mem/phys"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func Test_DefaultConfig(t *testing.T) {
	cfg := kernel.DefaultConfig()
	assert.Equal(t, uint64(0x4444_4444_0000), cfg.HeapStart)
	assert.Equal(t, uint64(100*1024), cfg.HeapSize)
	assert.Equal(t, heap.StrategySegregated, cfg.Strategy)
	assert.Equal(t, []uint64{8, 16, 32, 64, 128, 256, 512, 1024, 2048}, cfg.Classes)
	assert.False(t, cfg.CheckLayouts)
	require.NoError(t, cfg.Validate())
}

func Test_ApplyEnv(t *testing.T) {
	cfg, err := kernel.ApplyEnvForTest(kernel.DefaultConfig(), envLookup(map[string]string{
		kernel.EnvStrategy:     "linked-list",
		kernel.EnvHeapSize:     "64KiB",
		kernel.EnvCheckLayouts: "true",
		kernel.EnvLogAlloc:     "1",
	}))
	require.NoError(t, err)
	assert.Equal(t, heap.StrategyLinkedList, cfg.Strategy)
	assert.Equal(t, uint64(64*1024), cfg.HeapSize)
	assert.True(t, cfg.CheckLayouts)
	assert.True(t, cfg.LogAlloc)

	cfg, err = kernel.ApplyEnvForTest(kernel.DefaultConfig(), envLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, kernel.DefaultConfig(), cfg)
}

func Test_ApplyEnv_Invalid(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"strategy":      {kernel.EnvStrategy: "buddy"},
		"heap size":     {kernel.EnvHeapSize: "lots"},
		"check layouts": {kernel.EnvCheckLayouts: "maybe"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := kernel.ApplyEnvForTest(kernel.DefaultConfig(), envLookup(env))
			require.ErrorIs(t, err, kernel.ErrBadConfig)
		})
	}
}

func Test_ConfigFromEnv(t *testing.T) {
	t.Setenv(kernel.EnvStrategy, "bump")
	cfg, err := kernel.ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, heap.StrategyBump, cfg.Strategy)
}

func Test_LogAlloc_OnlyMachineSwitches(t *testing.T) {
	prev := klog.SetAllocLogging(false)
	t.Cleanup(func() { klog.SetAllocLogging(prev) })

	for _, v := range []string{"0", "false", "FALSE", ""} {
		t.Setenv(kernel.EnvLogAlloc, v)
		cfg, err := kernel.ConfigFromEnv()
		require.NoError(t, err)
		require.False(t, cfg.LogAlloc, v)
		newMachine(t, cfg)
		require.False(t, klog.AllocEnabled(), v)
	}

	t.Setenv(kernel.EnvLogAlloc, "1")
	cfg, err := kernel.ConfigFromEnv()
	require.NoError(t, err)
	require.False(t, klog.AllocEnabled(), "reading the environment switches nothing")
	newMachine(t, cfg)
	require.True(t, klog.AllocEnabled())
}

func Test_ParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"4096", 4096, true},
		{"0x1000", 4096, true},
		{"100K", 100 * 1024, true},
		{"100KiB", 100 * 1024, true},
		{" 2 MiB ", 2 << 20, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"1.5M", 0, false},
		{"99999999999999999999M", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := kernel.ParseSize(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, kernel.ErrBadConfig)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_Config_Validate(t *testing.T) {
	mutate := func(fn func(*kernel.Config)) kernel.Config {
		cfg := kernel.DefaultConfig()
		fn(&cfg)
		return cfg
	}
	bad := map[string]kernel.Config{
		"empty heap":      mutate(func(c *kernel.Config) { c.HeapSize = 0 }),
		"wrapping heap":   mutate(func(c *kernel.Config) { c.HeapStart = ^uint64(0) - 10 }),
		"non-canonical":   mutate(func(c *kernel.Config) { c.HeapStart = 0x0000_8000_0000_0000 }),
		"bad classes":     mutate(func(c *kernel.Config) { c.Classes = []uint64{8, 12} }),
		"overlapping map": mutate(func(c *kernel.Config) { c.MemoryMap = phys.MemoryMap{{Start: 0, End: 0x2000}, {Start: 0x1000, End: 0x3000}} }),
		"map past RAM":    mutate(func(c *kernel.Config) { c.MemoryMap = phys.MemoryMap{{Start: 0, End: 8 << 20}} }),
	}
	for name, cfg := range bad {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, cfg.Validate(), kernel.ErrBadConfig)
		})
	}

	// Classes only matter to the segregated strategy.
	cfg := mutate(func(c *kernel.Config) { c.Strategy = heap.StrategyBump; c.Classes = nil })
	require.NoError(t, cfg.Validate())
}
