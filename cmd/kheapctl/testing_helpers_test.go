package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	// Drain concurrently so large reports do not fill the pipe.
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return string(<-done), fnErr
}

// resetFlags restores every global flag to its default.
func resetFlags(t *testing.T) {
	t.Helper()
	verbose, quiet, jsonOut, noColor = false, false, false, true
	setupColor()
	logLevel, strategyName, heapSize = "", "", ""
	checkLayouts = false
	stressIterations = 1000
	dumpAllocs, dumpFree, dumpBytes = nil, 0, 256
	for _, env := range []string{"KHEAP_STRATEGY", "KHEAP_HEAP_SIZE", "KHEAP_CHECK_LAYOUTS", "KHEAP_LOG_ALLOC"} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

// decodeJSON unmarshals output into v.
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}
