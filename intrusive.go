package autoptr

import (
	"reflect"
	"unsafe"

	"github.com/submada/autoptr-sub001/alloc"
)

// Intrusive embeds a control block inside a payload. Embed it by value:
//
//	type Session struct {
//		autoptr.Intrusive
//		ID string
//	}
//
// Blocks built by MakeIntrusive locate the counters through the embedded
// field, and SharedFromThis can recover an owner from a bare *Session.
type Intrusive struct {
	control ControlBlock
}

func (i *Intrusive) controlBlock() *ControlBlock { return &i.control }

// PtrIntrusive is satisfied by *T when T embeds Intrusive.
type PtrIntrusive[T any] interface {
	*T
	controlBlock() *ControlBlock
}

// intrusiveBlock holds the allocator and the payload; the control block
// sits inside the payload.
type intrusiveBlock[T any, A alloc.Allocator] struct {
	allocator A
	value     T
}

// intrusiveOffset returns the distance from the block start to the embedded
// control block.
func intrusiveOffset[T any, PT PtrIntrusive[T], A alloc.Allocator]() uintptr {
	var b intrusiveBlock[T, A]
	embed := uintptr(unsafe.Pointer(PT(&b.value).controlBlock())) - uintptr(unsafe.Pointer(&b.value))
	return unsafe.Offsetof(b.value) + embed
}

func (b *intrusiveBlock[T, A]) deallocate(c *ControlBlock) {
	a := b.allocator
	deallocateBlock(a, unsafe.Pointer(b), layoutOf[intrusiveBlock[T, A]](), c)
}

// intrusiveTag keys the dispatch table by payload, pointer and allocator type.
type intrusiveTag[T any, PT PtrIntrusive[T], A alloc.Allocator] struct{}

func intrusiveDispatch[T any, PT PtrIntrusive[T], A alloc.Allocator]() *Dispatch {
	return dispatchFor[intrusiveTag[T, PT, A]](func() *Dispatch {
		off := intrusiveOffset[T, PT, A]()
		blockOf := func(c *ControlBlock) *intrusiveBlock[T, A] {
			return (*intrusiveBlock[T, A])(unsafe.Add(unsafe.Pointer(c), -int(off)))
		}
		release := func(c *ControlBlock) {
			blockOf(c).deallocate(c)
		}
		return &Dispatch{
			OnZeroShared: func(c *ControlBlock) {
				b := blockOf(c)
				weak := c.hasWeak()
				// The counters live in the payload, so it is not cleared here.
				dropOnly(&b.value)
				if !weak {
					release(c)
				}
			},
			OnZeroWeak: release,
			ManualDestroy: func(c *ControlBlock, deallocate bool) {
				dropOnly(&blockOf(c).value)
				if deallocate {
					release(c)
				}
			},
		}
	})
}

func emplaceIntrusive[T any, PT PtrIntrusive[T], A alloc.Allocator](a A, init func(PT), mode Mode) (built[T], error) {
	l := layoutOf[intrusiveBlock[T, A]]()
	mem, err := allocateBlock(a, l)
	if err != nil {
		return built[T]{}, err
	}
	b := (*intrusiveBlock[T, A])(mem)
	b.allocator = a
	c := PT(&b.value).controlBlock()
	c.init(intrusiveDispatch[T, PT, A](), mode)
	if init != nil {
		init(PT(&b.value))
	}
	publishBlock(a, mem, l, c, reflect.TypeFor[T](), a)
	return built[T]{control: c, ptr: &b.value}, nil
}

// MakeIntrusive builds a heap block for a payload that embeds Intrusive.
// init must not overwrite the embedded Intrusive field.
func MakeIntrusive[T any, PT PtrIntrusive[T]](init func(PT), opts ...Option) Shared[T] {
	s, err := AllocateIntrusive[T, PT](alloc.Heap{}, init, opts...)
	if err != nil {
		invariantf("autoptr: heap allocation failed: %v", err)
	}
	return s
}

// AllocateIntrusive is MakeIntrusive with storage from a.
func AllocateIntrusive[T any, PT PtrIntrusive[T], A alloc.Allocator](a A, init func(PT), opts ...Option) (Shared[T], error) {
	mode, err := buildOptions(opts).sharedMode()
	if err != nil {
		return Shared[T]{}, err
	}
	b, err := emplaceIntrusive[T, PT](a, init, mode)
	if err != nil {
		return Shared[T]{}, err
	}
	return Shared[T]{owner: owner{b.control}, ptr: b.ptr}, nil
}

// SharedFromThis returns a new owner of the block p lives in. It returns an
// empty handle if p is nil, was not built by MakeIntrusive or
// AllocateIntrusive, or its last owner is already gone.
func SharedFromThis[T any, PT PtrIntrusive[T]](p PT) Shared[T] {
	if p == nil {
		return Shared[T]{}
	}
	c := p.controlBlock()
	if c.table == nil || !c.counted() || !c.tryAddSharedIfAlive() {
		return Shared[T]{}
	}
	return Shared[T]{owner: owner{c}, ptr: (*T)(p)}
}
