//go:build unix

package mmfile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnon_ZeroedAndWritable(t *testing.T) {
	data, cleanup, err := Anon(3 * 4096)
	require.NoError(t, err)
	require.Len(t, data, 3*4096)

	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
	data[0] = 0xAA
	data[len(data)-1] = 0xBB
	require.Equal(t, byte(0xAA), data[0])

	require.NoError(t, cleanup())
	require.NoError(t, cleanup(), "second cleanup should be a no-op")
}

func TestAnon_Empty(t *testing.T) {
	data, cleanup, err := Anon(0)
	require.NoError(t, err)
	require.Empty(t, data)
	require.NoError(t, cleanup())
}

func TestAnon_Negative(t *testing.T) {
	_, _, err := Anon(-1)
	require.Error(t, err)
}
