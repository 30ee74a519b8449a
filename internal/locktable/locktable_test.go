package locktable

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundsUpToPowerOfTwo(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {64, 64}, {65, 128},
	} {
		assert.Equal(t, tc.want, New(tc.in).Len(), "New(%d)", tc.in)
	}
}

func TestForIsStable(t *testing.T) {
	tbl := New(16)
	var x, y int64
	require.Same(t, tbl.For(unsafe.Pointer(&x)), tbl.For(unsafe.Pointer(&x)))
	require.Same(t, tbl.For(unsafe.Pointer(&y)), tbl.For(unsafe.Pointer(&y)))
}

func TestIndexInRange(t *testing.T) {
	tbl := New(8)
	vals := make([]int64, 1024)
	seen := make(map[int]bool)
	for i := range vals {
		idx := tbl.index(uintptr(unsafe.Pointer(&vals[i])))
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, tbl.Len())
		seen[idx] = true
	}
	assert.Greater(t, len(seen), 1, "addresses should spread over stripes")
}
