package heap

import (
	"fmt"
	"strings"

	"github.com/crysalis-os/kheap/internal/buf"
	"github.com/crysalis-os/kheap/mem"
)

// GlobalAlloc is the narrow interface every dynamic-memory user goes through.
// The Layout passed to Dealloc must equal the one passed to the matching Alloc.
type GlobalAlloc interface {
	Alloc(l Layout) (uint64, error)
	Dealloc(addr uint64, l Layout)
}

// Backend is an allocator that can be placed behind a Locked.
//
// Implementations:
//   - *Allocator: segregated free lists over a first-fit heap (default)
//   - *LinkedList: the first-fit heap on its own
//   - *Bump: append-only pointer bumping
type Backend interface {
	GlobalAlloc
	Init(start, size uint64) error
}

var (
	_ Backend = (*Allocator)(nil)
	_ Backend = (*LinkedList)(nil)
	_ Backend = (*Bump)(nil)
)

// LinkedList serves every request straight from a first-fit heap, without
// size classes.
type LinkedList struct {
	heap        FirstFit
	initialized bool
}

// NewLinkedList creates an uninitialized first-fit backend.
func NewLinkedList() *LinkedList { return &LinkedList{} }

func (ll *LinkedList) Init(start, size uint64) error {
	if ll.initialized {
		return ErrAlreadyInitialized
	}
	if _, ok := buf.AddOverflowSafe(start, size); !ok {
		return fmt.Errorf("%#x+%d: %w", start, size, ErrBadRegion)
	}
	ll.heap.Init(start, size)
	ll.initialized = true
	return nil
}

func (ll *LinkedList) Alloc(l Layout) (uint64, error) {
	if !ll.initialized {
		return 0, ErrNotInitialized
	}
	addr, err := ll.heap.AllocateFirstFit(l)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", l, err)
	}
	return addr, nil
}

func (ll *LinkedList) Dealloc(addr uint64, l Layout) {
	ll.heap.Deallocate(addr, l)
}

// Heap returns the underlying first-fit heap.
func (ll *LinkedList) Heap() *FirstFit { return &ll.heap }

// Strategy selects the allocator placed behind the kernel's global lock.
type Strategy uint8

const (
	StrategySegregated Strategy = iota
	StrategyLinkedList
	StrategyBump
)

var strategyNames = [...]string{
	StrategySegregated: "segregated",
	StrategyLinkedList: "linked-list",
	StrategyBump:       "bump",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseStrategy accepts the names printed by Strategy.String, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range strategyNames {
		if n == s {
			return Strategy(i), nil
		}
	}
	switch n {
	case "fixed-size-block", "fixed", "segregated-fit":
		return StrategySegregated, nil
	case "linked_list", "linkedlist", "first-fit":
		return StrategyLinkedList, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
}

// NewBackend builds an uninitialized backend for s. Only the segregated
// allocator keeps nodes in memory, so m and classes matter only there.
func NewBackend(s Strategy, m mem.Memory, classes *ClassTable) (Backend, error) {
	switch s {
	case StrategySegregated:
		return New(m, classes), nil
	case StrategyLinkedList:
		return NewLinkedList(), nil
	case StrategyBump:
		return NewBump(), nil
	}
	return nil, fmt.Errorf("%v: %w", s, ErrUnknownStrategy)
}
