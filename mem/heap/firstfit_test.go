package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newFirstFit(start, size uint64) *FirstFit {
	h := &FirstFit{}
	h.Init(start, size)
	return h
}

func Test_FirstFit_CarveFromFront(t *testing.T) {
	h := newFirstFit(0x1000, 0x1000)

	a, err := h.AllocateFirstFit(MustLayout(100, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), a)
	require.Equal(t, []Span{{Start: 0x1000 + 100, Len: 0x1000 - 100}}, h.Spans())
	require.Equal(t, uint64(100), h.UsedBytes())
	require.Equal(t, uint64(0x1000-100), h.FreeBytes())
}

func Test_FirstFit_AlignmentPaddingStaysFree(t *testing.T) {
	h := newFirstFit(0x1008, 0x1000)

	a, err := h.AllocateFirstFit(MustLayout(16, 64))
	require.NoError(t, err)
	require.Equal(t, uint64(0x1040), a)
	require.Equal(t, []Span{
		{Start: 0x1008, Len: 0x38},
		{Start: 0x1050, Len: 0x1008 + 0x1000 - 0x1050},
	}, h.Spans())

	// The padding is usable by a later small request.
	b, err := h.AllocateFirstFit(MustLayout(8, 8))
	require.NoError(t, err)
	require.Equal(t, uint64(0x1008), b)
}

func Test_FirstFit_FirstNotBest(t *testing.T) {
	h := newFirstFit(0, 300)
	a, _ := h.AllocateFirstFit(MustLayout(100, 1))
	b, _ := h.AllocateFirstFit(MustLayout(50, 1))
	c, _ := h.AllocateFirstFit(MustLayout(50, 1))
	_, _ = h.AllocateFirstFit(MustLayout(100, 1))
	require.Equal(t, uint64(150), c)

	h.Deallocate(a, MustLayout(100, 1))
	h.Deallocate(c, MustLayout(50, 1))
	_ = b

	// [0,100) is first in address order even though [150,200) fits tighter.
	got, err := h.AllocateFirstFit(MustLayout(40, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}

func Test_FirstFit_ExactFitUnlinks(t *testing.T) {
	h := newFirstFit(0x2000, 64)
	a, err := h.AllocateFirstFit(MustLayout(64, 8))
	require.NoError(t, err)
	require.Equal(t, uint64(0x2000), a)
	require.Empty(t, h.Spans())

	_, err = h.AllocateFirstFit(MustLayout(1, 1))
	require.ErrorIs(t, err, ErrNoSpace)
}

func Test_FirstFit_CoalescesBothSides(t *testing.T) {
	h := newFirstFit(0, 96)
	l := MustLayout(32, 8)
	a, _ := h.AllocateFirstFit(l)
	b, _ := h.AllocateFirstFit(l)
	c, _ := h.AllocateFirstFit(l)
	require.Empty(t, h.Spans())

	h.Deallocate(a, l)
	h.Deallocate(c, l)
	require.Equal(t, []Span{{0, 32}, {64, 32}}, h.Spans())

	h.Deallocate(b, l)
	require.Equal(t, []Span{{0, 96}}, h.Spans())
	require.Equal(t, uint64(96), h.LargestSpan())
	require.Zero(t, h.UsedBytes())
}

func Test_FirstFit_CoalescesForwardOnly(t *testing.T) {
	h := newFirstFit(0, 64)
	l := MustLayout(16, 8)
	a, _ := h.AllocateFirstFit(l)
	_, _ = h.AllocateFirstFit(l)

	h.Deallocate(a, l)
	require.Equal(t, []Span{{0, 16}, {32, 32}}, h.Spans())
}

func Test_FirstFit_ZeroSizeTakesOneByte(t *testing.T) {
	h := newFirstFit(0x100, 16)
	a, err := h.AllocateFirstFit(MustLayout(0, 1))
	require.NoError(t, err)
	b, err := h.AllocateFirstFit(MustLayout(0, 1))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Equal(t, uint64(2), h.UsedBytes())

	h.Deallocate(a, MustLayout(0, 1))
	h.Deallocate(b, MustLayout(0, 1))
	require.Equal(t, []Span{{0x100, 16}}, h.Spans())
}

func Test_FirstFit_Misuse(t *testing.T) {
	h := newFirstFit(0x1000, 0x100)
	l := MustLayout(16, 8)
	a, err := h.AllocateFirstFit(l)
	require.NoError(t, err)

	h.Deallocate(a, l)
	requirePanicViolation(t, func() { h.Deallocate(a, l) })
	requirePanicViolation(t, func() { h.Deallocate(0x2000, l) })
	requirePanicViolation(t, func() { h.Deallocate(0xff8, l) })
	require.Panics(t, func() { h.Init(0, 16) })
}

func Test_FirstFit_EmptyHeap(t *testing.T) {
	h := newFirstFit(0x1000, 0)
	_, err := h.AllocateFirstFit(MustLayout(1, 1))
	require.ErrorIs(t, err, ErrNoSpace)
	require.Zero(t, h.LargestSpan())
}
