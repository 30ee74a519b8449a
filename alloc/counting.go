package alloc

import (
	"unsafe"

	"go.uber.org/atomic"
)

// Stats counts traffic through a Counting allocator.
type Stats struct {
	Allocs   atomic.Int64
	Frees    atomic.Int64
	Failures atomic.Int64
	Bytes    atomic.Int64
}

// Live returns allocations not yet freed.
func (s *Stats) Live() int64 {
	return s.Allocs.Load() - s.Frees.Load()
}

// Counting wraps another allocator and records every call in Stats.
type Counting struct {
	Inner Allocator
	Stats *Stats
}

// NewCounting wraps inner. A nil inner means Heap.
func NewCounting(inner Allocator) Counting {
	if inner == nil {
		inner = Heap{}
	}
	return Counting{Inner: inner, Stats: new(Stats)}
}

// Allocate forwards to Inner and counts the result.
func (c Counting) Allocate(l Layout) unsafe.Pointer {
	p := c.Inner.Allocate(l)
	if p == nil {
		c.Stats.Failures.Inc()
		return nil
	}
	c.Stats.Allocs.Inc()
	c.Stats.Bytes.Add(int64(l.Size))
	return p
}

// Deallocate counts the release and forwards it to Inner.
func (c Counting) Deallocate(p unsafe.Pointer, l Layout) {
	c.Stats.Frees.Inc()
	c.Stats.Bytes.Sub(int64(l.Size))
	c.Inner.Deallocate(p, l)
}

// Scanned reports whether Inner is scanned.
func (c Counting) Scanned() bool { return c.Inner.Scanned() }
