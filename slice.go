package autoptr

import (
	"cmp"
	"unsafe"
)

// SharedSlice is an owning reference to a run of elements.
type SharedSlice[T any] struct {
	owner
	elems []T
}

// Len returns the number of elements.
func (s SharedSlice[T]) Len() int { return len(s.elems) }

// At returns a pointer to element i.
func (s SharedSlice[T]) At(i int) *T { return &s.elems[i] }

// Set stores v at index i.
func (s SharedSlice[T]) Set(i int, v T) { s.elems[i] = v }

// Slice returns the elements. The slice is valid while s owns the block.
func (s SharedSlice[T]) Slice() []T { return s.elems }

// Clone returns another owner of the same block.
func (s SharedSlice[T]) Clone() SharedSlice[T] {
	if s.control != nil {
		s.control.addRef(false)
	}
	return s
}

// Move transfers ownership to the result and leaves s empty.
func (s *SharedSlice[T]) Move() SharedSlice[T] {
	out := *s
	*s = SharedSlice[T]{}
	return out
}

// Assign releases the current value of s and takes ownership of v.
func (s *SharedSlice[T]) Assign(v SharedSlice[T]) {
	old := *s
	*s = v
	old.Release()
}

// Swap exchanges the values of s and v.
func (s *SharedSlice[T]) Swap(v *SharedSlice[T]) {
	*s, *v = *v, *s
}

// Release drops the reference and leaves s empty. The elements are dropped
// when the last owner releases them.
func (s *SharedSlice[T]) Release() {
	c := s.control
	*s = SharedSlice[T]{}
	if c != nil {
		c.release(false)
	}
}

// Weak returns a weak handle to the block. It panics if the block was built
// WithoutWeak.
func (s SharedSlice[T]) Weak() WeakSlice[T] {
	if s.control == nil {
		return WeakSlice[T]{}
	}
	s.control.addRef(true)
	return WeakSlice[T]{weakRef: weakRef{s.control}, elems: s.elems}
}

// Share makes a thread-local block usable from any goroutine. See
// Shared.Share.
func (s SharedSlice[T]) Share() bool { return s.share() }

// Equal reports whether both handles cover the same elements. Two
// zero-length handles are equal.
func (s SharedSlice[T]) Equal(v SharedSlice[T]) bool { return sliceEqual(s.elems, v.elems) }

// Compare orders handles by the address one past their last element.
func (s SharedSlice[T]) Compare(v SharedSlice[T]) int { return sliceCompare(s.elems, v.elems) }

func sliceEqual[T any](a, b []T) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return len(a) == len(b) && unsafe.SliceData(a) == unsafe.SliceData(b)
}

func sliceCompare[T any](a, b []T) int {
	if sliceEqual(a, b) {
		return 0
	}
	return cmp.Compare(sliceEnd(a), sliceEnd(b))
}

func sliceEnd[T any](s []T) uintptr {
	if len(s) == 0 {
		return 0
	}
	var zero T
	return uintptr(unsafe.Pointer(unsafe.SliceData(s))) + uintptr(len(s))*unsafe.Sizeof(zero)
}

// AliasSlice returns an owner of o's block whose elements are elems.
func AliasSlice[U any](o Owner, elems []U) SharedSlice[U] {
	c := o.ownerControl()
	if c == nil || elems == nil {
		return SharedSlice[U]{}
	}
	c.addRef(false)
	return SharedSlice[U]{owner: owner{c}, elems: elems}
}
