// Package locktable maps addresses onto a fixed set of mutexes.
package locktable

import (
	"math/bits"
	"sync"
	"unsafe"
)

// DefaultShards is the stripe count used when none is configured.
const DefaultShards = 64

type stripe struct {
	mu sync.Mutex
	_  [64 - unsafe.Sizeof(sync.Mutex{})]byte
}

// Table is a striped mutex table. Two addresses may share a stripe; a
// holder must never take a second stripe while holding one.
type Table struct {
	stripes []stripe
	shift   uint
}

// New returns a table with n stripes. n is rounded up to a power of two.
func New(n int) *Table {
	if n < 1 {
		n = 1
	}
	size := 1 << bits.Len(uint(n-1))
	return &Table{
		stripes: make([]stripe, size),
		shift:   uint(64 - bits.Len(uint(size-1))),
	}
}

// Len returns the number of stripes.
func (t *Table) Len() int {
	return len(t.stripes)
}

// For returns the mutex guarding addr.
func (t *Table) For(addr unsafe.Pointer) *sync.Mutex {
	return &t.stripes[t.index(uintptr(addr))].mu
}

func (t *Table) index(addr uintptr) int {
	if len(t.stripes) == 1 {
		return 0
	}
	// Fibonacci hashing spreads neighbouring addresses over the stripes.
	return int((uint64(addr) * 0x9E3779B97F4A7C15) >> t.shift)
}
