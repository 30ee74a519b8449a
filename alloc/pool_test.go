package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassIndex(t *testing.T) {
	for _, tc := range []struct {
		size uintptr
		want int
	}{
		{1, 0}, {16, 0}, {17, 1}, {32, 1}, {33, 2}, {4096, 8}, {1 << 16, numClasses - 1}, {1<<16 + 1, -1},
	} {
		assert.Equal(t, tc.want, classIndex(tc.size), "size %d", tc.size)
	}
}

func TestPoolReusesClearedRegions(t *testing.T) {
	p := NewPool()
	l := Layout{Size: 40, Align: 8}

	mem := p.Allocate(l)
	require.NotNil(t, mem)
	buf := unsafe.Slice((*byte)(mem), l.Size)
	for i := range buf {
		buf[i] = 0xAB
	}
	p.Deallocate(mem, l)

	for range 4 {
		again := p.Allocate(l)
		require.NotNil(t, again)
		assert.Equal(t, make([]byte, l.Size), unsafe.Slice((*byte)(again), l.Size), "regions come back zeroed")
		p.Deallocate(again, l)
	}
	assert.False(t, p.Scanned())
}

func TestPoolResetCanDiscard(t *testing.T) {
	p := NewPool()
	resets := 0
	p.Reset = func(unsafe.Pointer, uintptr) bool {
		resets++
		return false
	}
	l := Layout{Size: 8, Align: 8}
	p.Deallocate(p.Allocate(l), l)
	assert.Equal(t, 1, resets)
}

func TestPoolLargeAndOverAligned(t *testing.T) {
	p := NewPool()
	big := Layout{Size: 1 << 17, Align: 8}
	mem := p.Allocate(big)
	require.NotNil(t, mem)
	p.Deallocate(mem, big)

	assert.Nil(t, p.Allocate(Layout{Size: 64, Align: 64}))
	p.Deallocate(nil, big)
}
