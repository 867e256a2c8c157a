package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crysalis-os/kheap/mem"
)

// newTestAllocator builds an initialized segregated allocator over a synthetic
// arena [base, base+size).
func newTestAllocator(t testing.TB, base uint64, size int) (*Allocator, *mem.Arena) {
	t.Helper()
	arena := mem.NewArena(base, size)
	a := New(arena, nil)
	require.NoError(t, a.Init(base, uint64(size)))
	return a, arena
}

// mustAlloc allocates l and fails the test on error.
func mustAlloc(t testing.TB, g GlobalAlloc, l Layout) uint64 {
	t.Helper()
	addr, err := g.Alloc(l)
	require.NoError(t, err, "alloc %v", l)
	return addr
}

// requirePanicViolation runs fn and checks it panics with a *ContractViolation.
func requirePanicViolation(t testing.TB, fn func()) *ContractViolation {
	t.Helper()
	var got *ContractViolation
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a contract violation panic")
			cv, ok := r.(*ContractViolation)
			require.True(t, ok, "panic value %T: %v", r, r)
			got = cv
		}()
		fn()
	}()
	return got
}

// interval is a live block for overlap checks.
type interval struct {
	addr   uint64
	layout Layout
}

func (iv interval) end() uint64 { return iv.addr + max(iv.layout.Size, 1) }

// requireDisjoint checks that no two live blocks overlap.
func requireDisjoint(t testing.TB, live []interval) {
	t.Helper()
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			a, b := live[i], live[j]
			if a.addr < b.end() && b.addr < a.end() {
				t.Fatalf("blocks overlap: [%#x,%#x) and [%#x,%#x)", a.addr, a.end(), b.addr, b.end())
			}
		}
	}
}
