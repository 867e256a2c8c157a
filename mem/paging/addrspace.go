package paging

import (
	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/internal/format"
	"github.com/crysalis-os/kheap/mem"
	"github.com/crysalis-os/kheap/mem/phys"
)

// AddressSpace is the kernel's view of virtual memory. Every access is
// translated through the page table (and its TLB) into physical RAM.
type AddressSpace struct {
	pt *PageTable
}

var _ mem.Memory = (*AddressSpace)(nil)

// NewAddressSpace returns a virtual memory view over pt.
func NewAddressSpace(pt *PageTable) *AddressSpace {
	return &AddressSpace{pt: pt}
}

// PageTable returns the hierarchy backing the address space.
func (as *AddressSpace) PageTable() *PageTable { return as.pt }

// access copies between p and virtual memory at addr, one page at a time,
// since consecutive virtual pages need not live in consecutive frames.
func (as *AddressSpace) access(addr uint64, p []byte, acc mem.Access) {
	total := len(p)
	if _, ok := buf.AddOverflowSafe(addr, uint64(total)); !ok {
		panic(&mem.Fault{Addr: addr, Len: total, Access: acc, Reason: "address overflow"})
	}
	for len(p) > 0 {
		physAddr, flags, err := as.pt.Translate(addr)
		if err != nil {
			panic(&mem.Fault{Addr: addr, Len: total, Access: acc, Reason: err.Error()})
		}
		if acc == mem.AccessWrite && !flags.Has(Writable) {
			panic(&mem.Fault{Addr: addr, Len: total, Access: acc, Reason: "page not writable"})
		}
		off := physAddr & format.PageMask
		frame := as.pt.ram.Frame(physFrame(physAddr))
		n := min(uint64(len(p)), format.PageSize-off)
		if acc == mem.AccessWrite {
			copy(frame[off:off+n], p[:n])
		} else {
			copy(p[:n], frame[off:off+n])
		}
		p = p[n:]
		addr += n
	}
}

func physFrame(addr uint64) phys.Frame { return phys.FrameContaining(addr) }

func (as *AddressSpace) Load64(addr uint64) uint64 {
	var b [8]byte
	as.access(addr, b[:], mem.AccessRead)
	return buf.U64LE(b[:])
}

func (as *AddressSpace) Store64(addr uint64, v uint64) {
	var b [8]byte
	buf.PutU64LE(b[:], v)
	as.access(addr, b[:], mem.AccessWrite)
}

func (as *AddressSpace) Read(addr uint64, p []byte) {
	as.access(addr, p, mem.AccessRead)
}

func (as *AddressSpace) Write(addr uint64, p []byte) {
	as.access(addr, p, mem.AccessWrite)
}
