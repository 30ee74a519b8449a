package autoptr

import (
	"reflect"
	"unsafe"

	"github.com/submada/autoptr-sub001/alloc"
)

// built is a freshly constructed block: its control block and payload.
type built[T any] struct {
	control *ControlBlock
	ptr     *T
}

// emplaceBlock co-allocates the control block with one payload value. A
// zero-size allocator occupies no space.
type emplaceBlock[T any, A alloc.Allocator] struct {
	allocator A
	control   ControlBlock
	value     T
}

func emplaceOf[T any, A alloc.Allocator](c *ControlBlock) *emplaceBlock[T, A] {
	var b emplaceBlock[T, A]
	return (*emplaceBlock[T, A])(unsafe.Add(unsafe.Pointer(c), -int(unsafe.Offsetof(b.control))))
}

func (b *emplaceBlock[T, A]) deallocate() {
	a := b.allocator
	deallocateBlock(a, unsafe.Pointer(b), layoutOf[emplaceBlock[T, A]](), &b.control)
}

func emplaceDispatch[T any, A alloc.Allocator]() *Dispatch {
	return dispatchFor[emplaceBlock[T, A]](func() *Dispatch {
		return &Dispatch{
			OnZeroShared: func(c *ControlBlock) {
				b := emplaceOf[T, A](c)
				weak := c.hasWeak()
				drop(&b.value)
				if !weak {
					b.deallocate()
				}
			},
			OnZeroWeak: func(c *ControlBlock) {
				emplaceOf[T, A](c).deallocate()
			},
			ManualDestroy: func(c *ControlBlock, deallocate bool) {
				b := emplaceOf[T, A](c)
				drop(&b.value)
				if deallocate {
					b.deallocate()
				}
			},
		}
	})
}

// emplace allocates a block and constructs the payload in place: first the
// control block, then the value.
func emplace[T any, A alloc.Allocator](a A, init func(*T), mode Mode) (built[T], error) {
	l := layoutOf[emplaceBlock[T, A]]()
	p, err := allocateBlock(a, l)
	if err != nil {
		return built[T]{}, err
	}
	b := (*emplaceBlock[T, A])(p)
	b.allocator = a
	b.control.init(emplaceDispatch[T, A](), mode)
	if init != nil {
		init(&b.value)
	}
	publishBlock(a, p, l, &b.control, reflect.TypeFor[T](), a)
	return built[T]{control: &b.control, ptr: &b.value}, nil
}

// MakeShared moves v into a new heap block and returns its first owner.
func MakeShared[T any](v T, opts ...Option) Shared[T] {
	return MakeSharedFunc(func(p *T) { *p = v }, opts...)
}

// MakeSharedFunc builds a heap block and lets init construct the payload in
// place.
func MakeSharedFunc[T any](init func(*T), opts ...Option) Shared[T] {
	s, err := AllocateShared(alloc.Heap{}, init, opts...)
	if err != nil {
		invariantf("autoptr: heap allocation failed: %v", err)
	}
	return s
}

// AllocateShared builds a block with storage from a. It returns an empty
// handle and ErrAllocationFailed when a cannot serve the request.
func AllocateShared[T any, A alloc.Allocator](a A, init func(*T), opts ...Option) (Shared[T], error) {
	mode, err := buildOptions(opts).sharedMode()
	if err != nil {
		return Shared[T]{}, err
	}
	b, err := emplace(a, init, mode)
	if err != nil {
		return Shared[T]{}, err
	}
	return Shared[T]{owner: owner{b.control}, ptr: b.ptr}, nil
}
