package heap

import (
	"fmt"
	"sync"
)

// InterruptMask masks hardware interrupts for the duration of a critical
// section. Disable returns the function that restores the previous state.
type InterruptMask interface {
	Disable() (restore func())
}

// NoMask leaves interrupts alone. It is only safe when no interrupt handler
// allocates.
type NoMask struct{}

// Disable implements InterruptMask.
func (NoMask) Disable() func() { return func() {} }

// Locked serializes all access to a Backend: every Init, Alloc and Dealloc
// holds one mutex for its whole duration, including any refill from the
// backing heap, and releases it on every exit path.
//
// The lock does not spin-wait for an interrupt handler: interrupts are masked
// before the mutex is taken and restored after it is released, so a handler
// that allocates can never preempt a holder of the lock and wait on it
// forever. Handlers raised inside the critical section run once it ends.
type Locked struct {
	mu      sync.Mutex
	mask    InterruptMask
	backend Backend

	// live maps address -> layout of every outstanding block when layout
	// checking is enabled; nil otherwise.
	live map[uint64]Layout
}

var _ GlobalAlloc = (*Locked)(nil)

// Option configures a Locked.
type Option func(*Locked)

// WithInterruptMask sets the mask used around each critical section.
func WithInterruptMask(m InterruptMask) Option {
	return func(l *Locked) {
		if m != nil {
			l.mask = m
		}
	}
}

// WithLayoutCheck records every live block and panics with a
// *ContractViolation when a block is freed twice, freed without having been
// allocated, or freed with a different layout.
func WithLayoutCheck() Option {
	return func(l *Locked) { l.live = make(map[uint64]Layout) }
}

// NewLocked wraps b.
func NewLocked(b Backend, opts ...Option) *Locked {
	l := &Locked{mask: NoMask{}, backend: b}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// acquire masks interrupts, then locks. The returned func undoes both in
// reverse order.
func (l *Locked) acquire() (release func()) {
	restore := l.mask.Disable()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		restore()
	}
}

// Init initializes the wrapped backend over [start, start+size).
func (l *Locked) Init(start, size uint64) error {
	release := l.acquire()
	defer release()
	return l.backend.Init(start, size)
}

// Alloc implements GlobalAlloc.
func (l *Locked) Alloc(layout Layout) (uint64, error) {
	release := l.acquire()
	defer release()

	addr, err := l.backend.Alloc(layout)
	if err != nil {
		return 0, err
	}
	if l.live != nil {
		if prev, ok := l.live[addr]; ok {
			panic(&ContractViolation{Op: "alloc", Addr: addr, Layout: layout,
				Reason: fmt.Sprintf("address already live with %v", prev)})
		}
		l.live[addr] = layout
	}
	return addr, nil
}

// Dealloc implements GlobalAlloc.
func (l *Locked) Dealloc(addr uint64, layout Layout) {
	release := l.acquire()
	defer release()

	if l.live != nil {
		prev, ok := l.live[addr]
		if !ok {
			panic(&ContractViolation{Op: "free", Addr: addr, Layout: layout, Reason: "not a live allocation"})
		}
		if prev != layout {
			panic(&ContractViolation{Op: "free", Addr: addr, Layout: layout,
				Reason: fmt.Sprintf("allocated with %v", prev)})
		}
		delete(l.live, addr)
	}
	l.backend.Dealloc(addr, layout)
}

// With runs fn with exclusive access to the backend, e.g. to read statistics.
func (l *Locked) With(fn func(Backend)) {
	release := l.acquire()
	defer release()
	fn(l.backend)
}

// Live returns the number of outstanding blocks, or -1 when layout checking
// is disabled.
func (l *Locked) Live() int {
	release := l.acquire()
	defer release()
	if l.live == nil {
		return -1
	}
	return len(l.live)
}
