package kernel

import "errors"

var (
	// ErrHeapInitialized indicates a second attempt to install the global heap.
	ErrHeapInitialized = errors.New("kernel: heap already initialized")

	// ErrHeapNotInitialized indicates a global allocation before InitHeap or Boot.
	ErrHeapNotInitialized = errors.New("kernel: heap not initialized")

	// ErrBadConfig indicates an invalid configuration value.
	ErrBadConfig = errors.New("kernel: bad config")
)
