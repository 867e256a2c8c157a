// Package interrupts models the CPU interrupt flag of the simulated machine.
//
// Interrupt handlers are plain funcs. A handler raised while interrupts are
// disabled is held back and delivered, in the order raised, as soon as the
// outermost disabled section ends. This is how the heap lock keeps
// allocating handlers from preempting a holder of the lock.
package interrupts

import (
	"sync"

	"github.com/crysalis-os/kheap/internal/klog"
)

// Handler is an interrupt service routine.
type Handler func()

// Controller is the interrupt flag plus the queue of held-back handlers.
// The zero value has interrupts enabled.
type Controller struct {
	mu        sync.Mutex
	depth     int
	pending   []Handler
	delivered int
}

// New returns a controller with interrupts enabled.
func New() *Controller { return &Controller{} }

// Disable masks interrupts and returns the func that undoes it. Sections
// nest; interrupts come back only when the outermost restore runs. Each
// restore func may be called once; later calls are no-ops.
func (c *Controller) Disable() (restore func()) {
	c.mu.Lock()
	c.depth++
	c.mu.Unlock()

	var once sync.Once
	return func() { once.Do(c.enable) }
}

func (c *Controller) enable() {
	c.mu.Lock()
	c.depth--
	if c.depth > 0 {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.drain()
}

// drain runs queued handlers with interrupts enabled. A handler may itself
// disable interrupts or raise more handlers.
func (c *Controller) drain() {
	for {
		c.mu.Lock()
		if c.depth > 0 || len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		h := c.pending[0]
		c.pending = c.pending[1:]
		c.delivered++
		c.mu.Unlock()

		h()
	}
}

// Raise delivers h now when interrupts are enabled and queues it otherwise.
func (c *Controller) Raise(h Handler) {
	c.mu.Lock()
	if c.depth > 0 {
		c.pending = append(c.pending, h)
		n := len(c.pending)
		c.mu.Unlock()
		klog.Debug("interrupt held back", "pending", n)
		return
	}
	c.delivered++
	c.mu.Unlock()
	h()
}

// Enabled reports whether interrupts are currently enabled.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth == 0
}

// Pending returns the number of handlers waiting for interrupts to come back.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Delivered returns the number of handlers run so far.
func (c *Controller) Delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered
}
