package autoptr

import (
	"reflect"
	"unsafe"

	"github.com/submada/autoptr-sub001/alloc"
)

// deleterBlock owns a payload that lives outside the block. Destruction
// hands the payload to the deleter; the allocator only ever frees the block.
type deleterBlock[T any, A alloc.Allocator] struct {
	allocator A
	control   ControlBlock
	deleter   func(*T)
	ptr       *T
}

func deleterOf[T any, A alloc.Allocator](c *ControlBlock) *deleterBlock[T, A] {
	var b deleterBlock[T, A]
	return (*deleterBlock[T, A])(unsafe.Add(unsafe.Pointer(c), -int(unsafe.Offsetof(b.control))))
}

func (b *deleterBlock[T, A]) destruct() {
	del, p := b.deleter, b.ptr
	b.deleter, b.ptr = nil, nil
	del(p)
}

func (b *deleterBlock[T, A]) deallocate() {
	a := b.allocator
	deallocateBlock(a, unsafe.Pointer(b), layoutOf[deleterBlock[T, A]](), &b.control)
}

func deleterDispatch[T any, A alloc.Allocator]() *Dispatch {
	return dispatchFor[deleterBlock[T, A]](func() *Dispatch {
		return &Dispatch{
			OnZeroShared: func(c *ControlBlock) {
				b := deleterOf[T, A](c)
				weak := c.hasWeak()
				b.destruct()
				if !weak {
					b.deallocate()
				}
			},
			OnZeroWeak: func(c *ControlBlock) {
				deleterOf[T, A](c).deallocate()
			},
			ManualDestroy: func(c *ControlBlock, deallocate bool) {
				b := deleterOf[T, A](c)
				b.destruct()
				if deallocate {
					b.deallocate()
				}
			},
		}
	})
}

func emplaceDeleter[T any, A alloc.Allocator](a A, p *T, del func(*T), mode Mode) (built[T], error) {
	if del == nil {
		del = dropOnly[T]
	}
	l := layoutOf[deleterBlock[T, A]]()
	mem, err := allocateBlock(a, l)
	if err != nil {
		return built[T]{}, err
	}
	b := (*deleterBlock[T, A])(mem)
	b.allocator = a
	b.control.init(deleterDispatch[T, A](), mode)
	b.deleter = del
	b.ptr = p
	publishBlock(a, mem, l, &b.control, reflect.TypeFor[T](), a, del, p)
	return built[T]{control: &b.control, ptr: p}, nil
}

// MakeSharedDeleter takes ownership of p, which was not allocated by this
// package. del runs exactly once with p when the last owner releases it; a
// nil del calls p's Drop method if it has one. A nil p gives an empty handle.
func MakeSharedDeleter[T any](p *T, del func(*T), opts ...Option) Shared[T] {
	s, err := AllocateSharedDeleter(alloc.Heap{}, p, del, opts...)
	if err != nil {
		invariantf("autoptr: heap allocation failed: %v", err)
	}
	return s
}

// AllocateSharedDeleter is MakeSharedDeleter with the block's storage
// taken from a. On failure del is not called and p remains the caller's.
func AllocateSharedDeleter[T any, A alloc.Allocator](a A, p *T, del func(*T), opts ...Option) (Shared[T], error) {
	if p == nil {
		return Shared[T]{}, nil
	}
	mode, err := buildOptions(opts).sharedMode()
	if err != nil {
		return Shared[T]{}, err
	}
	b, err := emplaceDeleter(a, p, del, mode)
	if err != nil {
		return Shared[T]{}, err
	}
	return Shared[T]{owner: owner{b.control}, ptr: b.ptr}, nil
}
