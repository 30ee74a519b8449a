package autoptr

import (
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/submada/autoptr-sub001/alloc"
)

// maxArrayBytes bounds the element storage of one array block.
const maxArrayBytes = 1 << 47

// arrayHeader precedes the elements of an array block.
type arrayHeader[A alloc.Allocator] struct {
	allocator A
	length    int
	control   ControlBlock
}

// arrayTag keys the dispatch table by element and allocator type.
type arrayTag[T any, A alloc.Allocator] struct{}

func arrayOf[A alloc.Allocator](c *ControlBlock) *arrayHeader[A] {
	var h arrayHeader[A]
	return (*arrayHeader[A])(unsafe.Add(unsafe.Pointer(c), -int(unsafe.Offsetof(h.control))))
}

// arrayElemOffset is the distance from the header to the first element.
func arrayElemOffset[T any, A alloc.Allocator]() uintptr {
	var h arrayHeader[A]
	var zero T
	align := unsafe.Alignof(zero)
	return (unsafe.Sizeof(h) + align - 1) &^ (align - 1)
}

// arrayLayout describes a block holding n elements. The Go type is a
// struct of the header followed by [n]T, so scanned allocators see the
// element pointers.
func arrayLayout[T any, A alloc.Allocator](n int) alloc.Layout {
	t := reflect.StructOf([]reflect.StructField{
		{Name: "Header", Type: reflect.TypeFor[arrayHeader[A]]()},
		{Name: "Elems", Type: reflect.ArrayOf(n, reflect.TypeFor[T]())},
	})
	return alloc.LayoutFor(t)
}

func (h *arrayHeader[A]) elems(off uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), off)
}

func arraySlice[T any, A alloc.Allocator](h *arrayHeader[A]) []T {
	return unsafe.Slice((*T)(h.elems(arrayElemOffset[T, A]())), h.length)
}

func arrayDeallocate[T any, A alloc.Allocator](h *arrayHeader[A]) {
	a := h.allocator
	deallocateBlock(a, unsafe.Pointer(h), arrayLayout[T, A](h.length), &h.control)
}

// arrayDestruct drops the elements in index order.
func arrayDestruct[T any, A alloc.Allocator](h *arrayHeader[A]) {
	elems := arraySlice[T](h)
	for i := range elems {
		dropOnly(&elems[i])
	}
	clear(elems)
}

func arrayDispatch[T any, A alloc.Allocator]() *Dispatch {
	return dispatchFor[arrayTag[T, A]](func() *Dispatch {
		return &Dispatch{
			OnZeroShared: func(c *ControlBlock) {
				h := arrayOf[A](c)
				weak := c.hasWeak()
				arrayDestruct[T](h)
				if !weak {
					arrayDeallocate[T](h)
				}
			},
			OnZeroWeak: func(c *ControlBlock) {
				arrayDeallocate[T](arrayOf[A](c))
			},
			ManualDestroy: func(c *ControlBlock, deallocate bool) {
				h := arrayOf[A](c)
				arrayDestruct[T](h)
				if deallocate {
					arrayDeallocate[T](h)
				}
			},
		}
	})
}

func emplaceArray[T any, A alloc.Allocator](a A, n int, init func(i int, p *T), mode Mode) (built[[]T], []T, error) {
	if n < 0 {
		invariantf("autoptr: negative array length %d", n)
	}
	var zero T
	if size := unsafe.Sizeof(zero); size != 0 && uintptr(n) > maxArrayBytes/size {
		return built[[]T]{}, nil, errors.Wrapf(ErrAllocationFailed, "%d elements of %d bytes", n, size)
	}
	l := arrayLayout[T, A](n)
	p, err := allocateBlock(a, l)
	if err != nil {
		return built[[]T]{}, nil, err
	}
	h := (*arrayHeader[A])(p)
	h.allocator = a
	h.length = n
	h.control.init(arrayDispatch[T, A](), mode)
	elems := arraySlice[T](h)
	if init != nil {
		for i := range elems {
			init(i, &elems[i])
		}
	}
	publishBlock(a, p, l, &h.control, reflect.TypeFor[[]T](), a)
	return built[[]T]{control: &h.control}, elems, nil
}

// MakeSharedSlice builds a heap block of n elements, each set to fill.
func MakeSharedSlice[T any](n int, fill T, opts ...Option) SharedSlice[T] {
	s, err := AllocateSharedSlice(alloc.Heap{}, n, func(_ int, p *T) { *p = fill }, opts...)
	if err != nil {
		invariantf("autoptr: heap allocation failed: %v", err)
	}
	return s
}

// AllocateSharedSlice builds a block of n elements with storage from a.
// init, when non-nil, constructs each element in index order.
func AllocateSharedSlice[T any, A alloc.Allocator](a A, n int, init func(i int, p *T), opts ...Option) (SharedSlice[T], error) {
	mode, err := buildOptions(opts).sharedMode()
	if err != nil {
		return SharedSlice[T]{}, err
	}
	b, elems, err := emplaceArray(a, n, init, mode)
	if err != nil {
		return SharedSlice[T]{}, err
	}
	return SharedSlice[T]{owner: owner{b.control}, elems: elems}, nil
}
