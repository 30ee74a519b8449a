package autoptr

import (
	"sync/atomic"
)

// Mode describes which counters a control block carries and how they are
// updated. It is fixed when the block is built.
type Mode uint8

const (
	// modeCounted enables the shared (owner) counter.
	modeCounted Mode = 1 << iota
	// modeWeak enables the weak counter.
	modeWeak
	// modeAtomic makes counter updates safe across goroutines.
	modeAtomic
	// modeTracked marks a block registered with the leak checker.
	modeTracked
)

// expired is the counter value meaning no holders remain.
const expired = -1

// ControlBlock holds the ownership counters of a managed block and the
// dispatch table that destroys it.
//
// Both counters store holders-1, so a freshly built block reads zero and a
// released one reads -1. While any owner is alive the owners together hold
// one weak reference, which lets payload destruction and deallocation happen
// at different times.
type ControlBlock struct {
	shared int64
	weak   int64
	table  *Dispatch
	mode   Mode
}

// init binds the dispatch table. Must run before the block is published.
func (c *ControlBlock) init(table *Dispatch, mode Mode) {
	c.shared = 0
	c.weak = 0
	c.table = table
	c.mode = mode
	if !c.valid() {
		invariantf("autoptr: dispatch table %+v is incomplete for mode %08b", table, mode)
	}
}

// valid reports whether every callback the block's counters need is bound.
func (c *ControlBlock) valid() bool {
	t := c.table
	if t == nil || t.ManualDestroy == nil {
		return false
	}
	if c.mode&modeCounted != 0 && t.OnZeroShared == nil {
		return false
	}
	if c.mode&modeWeak != 0 && t.OnZeroWeak == nil {
		return false
	}
	return true
}

func (c *ControlBlock) counted() bool    { return c.mode&modeCounted != 0 }
func (c *ControlBlock) hasWeak() bool    { return c.mode&modeWeak != 0 }
func (c *ControlBlock) threadSafe() bool { return c.mode&modeAtomic != 0 }

func (c *ControlBlock) counter(weak bool) *int64 {
	if weak {
		if !c.hasWeak() {
			invariantf("autoptr: block %p has no weak counter", c)
		}
		return &c.weak
	}
	if !c.counted() {
		invariantf("autoptr: block %p has no shared counter", c)
	}
	return &c.shared
}

func (c *ControlBlock) add(p *int64, delta int64) int64 {
	if c.threadSafe() {
		return atomic.AddInt64(p, delta)
	}
	*p += delta
	return *p
}

func (c *ControlBlock) load(p *int64) int64 {
	if c.threadSafe() {
		return atomic.LoadInt64(p)
	}
	return *p
}

// addRef takes one more shared or weak reference.
func (c *ControlBlock) addRef(weak bool) {
	if n := c.add(c.counter(weak), 1); n <= 0 {
		invariantf("autoptr: addRef(weak=%t) on released block %p (count %d)", weak, c, n)
	}
}

// release drops one shared or weak reference and runs the zero-crossing
// callback when the count reaches the sentinel.
func (c *ControlBlock) release(weak bool) {
	n := c.add(c.counter(weak), -1)
	switch {
	case n < expired:
		invariantf("autoptr: release(weak=%t) past zero on block %p (count %d)", weak, c, n)
	case n > expired:
		return
	}
	if weak {
		debugBlock("autoptr weak count reached zero", c)
		c.table.OnZeroWeak(c)
		return
	}
	debugBlock("autoptr shared count reached zero", c)
	hasWeak := c.hasWeak()
	c.table.OnZeroShared(c)
	if hasWeak {
		c.release(true)
	}
}

// tryAddSharedIfAlive increments the shared count unless it already reads
// the sentinel. The test and the increment are one step.
func (c *ControlBlock) tryAddSharedIfAlive() bool {
	p := c.counter(false)
	if !c.threadSafe() {
		if *p == expired {
			return false
		}
		*p++
		return true
	}
	for {
		n := atomic.LoadInt64(p)
		if n == expired {
			return false
		}
		if atomic.CompareAndSwapInt64(p, n, n+1) {
			return true
		}
	}
}

// manualDestroy destructs the payload and optionally frees the block
// without touching the counters. Only valid with a single owner.
func (c *ControlBlock) manualDestroy(deallocate bool) {
	c.table.ManualDestroy(c, deallocate)
}

// UseCount returns the number of owning handles. The value is a snapshot.
func (c *ControlBlock) UseCount() int64 {
	if c == nil {
		return 0
	}
	if !c.counted() {
		return 1
	}
	return c.load(&c.shared) + 1
}

// WeakCount returns the number of weak handles, not counting the reference
// held on behalf of the owners. The value is a snapshot.
func (c *ControlBlock) WeakCount() int64 {
	if c == nil || !c.hasWeak() {
		return 0
	}
	w := c.load(&c.weak) + 1
	if c.counted() && c.load(&c.shared) != expired {
		w--
	}
	return w
}
