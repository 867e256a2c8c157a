package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_AlignUp(t *testing.T) {
	tests := []struct {
		addr, align, want uint64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{0x1001, 4096, 0x2000},
		{0x1bb8, 16, 0x1bc0},
		{0x1bb8, 8, 0x1bb8},
		{7, 1, 7},
	}
	for _, tt := range tests {
		got, ok := AlignUp(tt.addr, tt.align)
		require.True(t, ok)
		require.Equal(t, tt.want, got, "AlignUp(%#x, %d)", tt.addr, tt.align)
	}
}

func Test_AlignUp_Overflow(t *testing.T) {
	_, ok := AlignUp(math.MaxUint64, 8)
	require.False(t, ok)

	got, ok := AlignUp(math.MaxUint64-7, 8)
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxUint64-7), got)
}

func Test_IsPowerOfTwo(t *testing.T) {
	for _, n := range []uint64{1, 2, 4, 8, 2048, 1 << 63} {
		require.True(t, IsPowerOfTwo(n), "%d", n)
	}
	for _, n := range []uint64{0, 3, 6, 12, 2049} {
		require.False(t, IsPowerOfTwo(n), "%d", n)
	}
}

func Test_AlignDownAndPage(t *testing.T) {
	require.Equal(t, uint64(0x4444_4444_0000), AlignDown(0x4444_4444_0fff, PageSize))
	require.True(t, IsAligned(HeapStart, PageSize))
	require.Equal(t, uint64(4096), AlignPage(1))
	require.Equal(t, uint64(4096), AlignPage(4096))
	require.Equal(t, uint64(8192), AlignPage(4097))
}

func Test_DefaultSizeClasses(t *testing.T) {
	prev := uint64(0)
	for _, c := range DefaultSizeClasses {
		require.True(t, IsPowerOfTwo(c))
		require.Greater(t, c, prev)
		require.GreaterOrEqual(t, c, uint64(NodeSize))
		prev = c
	}
	require.Equal(t, uint64(2048), DefaultSizeClasses[len(DefaultSizeClasses)-1])
}
