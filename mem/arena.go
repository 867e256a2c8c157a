package mem

import (
	"github.com/crysalis-os/kheap/internal/buf"
)

// Arena is a flat memory range [Base, Base+Size()) backed by a byte slice.
// It stands in for the mapped heap window when an allocator is tested on its
// own, e.g. a 4096-byte region starting at 0x1000.
type Arena struct {
	base uint64
	data []byte
}

// NewArena returns a zeroed arena of size bytes starting at base.
func NewArena(base uint64, size int) *Arena {
	return &Arena{base: base, data: make([]byte, size)}
}

// NewArenaOver wraps existing storage without copying it.
func NewArenaOver(base uint64, data []byte) *Arena {
	return &Arena{base: base, data: data}
}

// Base returns the first address of the arena.
func (a *Arena) Base() uint64 { return a.base }

// Size returns the arena length in bytes.
func (a *Arena) Size() uint64 { return uint64(len(a.data)) }

// Bytes exposes the backing storage.
func (a *Arena) Bytes() []byte { return a.data }

// slice returns the backing bytes for [addr, addr+n) or panics with a Fault.
func (a *Arena) slice(addr uint64, n int, acc Access) []byte {
	end, err := buf.CheckRange(a.base, a.base+uint64(len(a.data)), addr, uint64(n))
	if err != nil {
		panic(&Fault{Addr: addr, Len: n, Access: acc, Reason: err.Error()})
	}
	off := addr - a.base
	return a.data[off : end-a.base]
}

func (a *Arena) Load64(addr uint64) uint64 {
	return buf.U64LE(a.slice(addr, 8, AccessRead))
}

func (a *Arena) Store64(addr uint64, v uint64) {
	buf.PutU64LE(a.slice(addr, 8, AccessWrite), v)
}

func (a *Arena) Read(addr uint64, p []byte) {
	copy(p, a.slice(addr, len(p), AccessRead))
}

func (a *Arena) Write(addr uint64, p []byte) {
	copy(a.slice(addr, len(p), AccessWrite), p)
}
