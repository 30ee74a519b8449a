//go:build unix

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaBumpAndReuse(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	l := Layout{Size: 24, Align: 8}
	p1 := a.Allocate(l)
	p2 := a.Allocate(l)
	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.Equal(t, uintptr(24), uintptr(p2)-uintptr(p1))
	assert.Equal(t, 2, a.Live())

	*(*int64)(p1) = 7
	a.Deallocate(p1, l)
	p3 := a.Allocate(l)
	assert.Equal(t, p1, p3, "freed region is reused first")
	assert.Zero(t, *(*int64)(p3), "reused region is cleared")

	a.Deallocate(p2, l)
	a.Deallocate(p3, l)
	require.NoError(t, a.Close())
	assert.Nil(t, a.Allocate(l), "closed arena serves nothing")
	require.NoError(t, a.Close())
}

func TestArenaAlignmentAndExhaustion(t *testing.T) {
	a, err := NewArena(256)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	small := a.Allocate(Layout{Size: 8, Align: 8})
	aligned := a.Allocate(Layout{Size: 8, Align: 64})
	require.NotNil(t, small)
	require.NotNil(t, aligned)
	assert.Zero(t, uintptr(aligned)%64)

	assert.Nil(t, a.Allocate(Layout{Size: 512, Align: 8}))
	a.Deallocate(small, Layout{Size: 8, Align: 8})
	a.Deallocate(aligned, Layout{Size: 8, Align: 64})
}

func TestArenaCloseWithLiveRegions(t *testing.T) {
	a, err := NewArena(128)
	require.NoError(t, err)
	l := Layout{Size: 8, Align: 8}
	p := a.Allocate(l)
	require.Error(t, a.Close())
	a.Deallocate(p, l)
	require.NoError(t, a.Close())

	_, err = NewArena(0)
	require.Error(t, err)
}

func TestArenaReuseRespectsAlignment(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	loose := Layout{Size: 64, Align: 8}
	strict := Layout{Size: 64, Align: 64}

	// Offset the bump pointer so the loose region is not 64-aligned.
	pad := a.Allocate(Layout{Size: 8, Align: 8})
	p := a.Allocate(loose)
	require.NotNil(t, p)
	require.NotZero(t, uintptr(p)%64)
	a.Deallocate(p, loose)

	q := a.Allocate(strict)
	require.NotNil(t, q)
	assert.NotEqual(t, p, q, "a loosely aligned region is not reused for a stricter request")
	assert.Zero(t, uintptr(q)%64)

	r := a.Allocate(loose)
	assert.Equal(t, p, r, "same class is reused")

	a.Deallocate(q, strict)
	a.Deallocate(r, loose)
	a.Deallocate(pad, Layout{Size: 8, Align: 8})
}
