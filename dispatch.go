package autoptr

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/submada/autoptr-sub001/alloc"
)

// Dispatch is the type-erased destruction table of a control block. Each
// callback receives only the control block and recovers the enclosing
// allocation from the block's fixed offset.
type Dispatch struct {
	// OnZeroShared destructs the payload. Without weak support it also
	// frees the block.
	OnZeroShared func(*ControlBlock)
	// OnZeroWeak frees the block.
	OnZeroWeak func(*ControlBlock)
	// ManualDestroy destructs the payload and, if asked, frees the block
	// without consulting the counters.
	ManualDestroy func(c *ControlBlock, deallocate bool)
}

// Dropper is implemented by payloads that need to run code when they are
// destructed. Drop is called exactly once, before the storage is cleared.
type Dropper interface {
	Drop()
}

var (
	tables  sync.Map // reflect.Type -> *Dispatch
	layouts sync.Map // reflect.Type -> alloc.Layout
)

// dispatchFor returns the table for block type B, building it on first use.
func dispatchFor[B any](build func() *Dispatch) *Dispatch {
	key := reflect.TypeFor[B]()
	if d, ok := tables.Load(key); ok {
		return d.(*Dispatch)
	}
	d, _ := tables.LoadOrStore(key, build())
	return d.(*Dispatch)
}

// layoutOf returns the cached layout of block type B.
func layoutOf[B any]() alloc.Layout {
	key := reflect.TypeFor[B]()
	if l, ok := layouts.Load(key); ok {
		return l.(alloc.Layout)
	}
	l := alloc.LayoutFor(key)
	layouts.Store(key, l)
	return l
}

// drop destructs one payload value in place and clears it.
func drop[T any](p *T) {
	dropOnly(p)
	var zero T
	*p = zero
}

// dropOnly runs the payload's Drop without clearing its storage.
func dropOnly[T any](p *T) {
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	}
}

var (
	tracerMu sync.RWMutex
	tracer   alloc.Tracer = alloc.NopTracer{}
)

// SetTracer installs the collaborator notified about blocks holding pointers
// in unscanned memory. A nil t restores the no-op tracer.
func SetTracer(t alloc.Tracer) {
	if t == nil {
		t = alloc.NopTracer{}
	}
	tracerMu.Lock()
	tracer = t
	tracerMu.Unlock()
}

func currentTracer() alloc.Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	return tracer
}

// traced reports whether blocks of layout l from a need tracer notifications.
func traced(a alloc.Allocator, l alloc.Layout) bool {
	return l.HasPointers && !a.Scanned()
}

// allocateBlock requests storage for one block.
func allocateBlock(a alloc.Allocator, l alloc.Layout) (unsafe.Pointer, error) {
	p := a.Allocate(l)
	if p == nil {
		return nil, errors.Wrapf(ErrAllocationFailed, "%d bytes for %v", l.Size, l.Type)
	}
	return p, nil
}

// pins keeps the Go pointers a block stores in unscanned memory reachable
// (its allocator, deleter and foreign payload) for as long as the block is
// allocated. Keyed by block base address.
var pins sync.Map // unsafe.Pointer -> []any

// publishBlock finishes construction: rooting, tracer and leak registration.
// roots are the values the block stores that the collector must keep alive.
func publishBlock(a alloc.Allocator, base unsafe.Pointer, l alloc.Layout, c *ControlBlock, payload reflect.Type, roots ...any) {
	if !a.Scanned() {
		pins.Store(base, roots)
	}
	if traced(a, l) {
		currentTracer().AddRange(base, l.Size)
	}
	registerBlock(c, payload)
}

// deallocateBlock undoes publishBlock and returns the storage.
func deallocateBlock(a alloc.Allocator, base unsafe.Pointer, l alloc.Layout, c *ControlBlock) {
	unregisterBlock(c)
	if traced(a, l) {
		currentTracer().RemoveRange(base)
	}
	// Unpin before the region can be handed out again.
	if !a.Scanned() {
		pins.Delete(base)
	}
	a.Deallocate(base, l)
}
