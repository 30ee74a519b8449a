package autoptr

import (
	"github.com/cockroachdb/errors"

	"github.com/submada/autoptr-sub001/alloc"
)

// Unique is the single owner of a value. It never touches the counters:
// Release destroys the payload and frees the block directly.
type Unique[T any] struct {
	control *ControlBlock
	ptr     *T
}

// MakeUnique moves v into a new heap block.
func MakeUnique[T any](v T, opts ...Option) Unique[T] {
	u, err := AllocateUnique(alloc.Heap{}, func(p *T) { *p = v }, opts...)
	if err != nil {
		invariantf("autoptr: heap allocation failed: %v", err)
	}
	return u
}

// AllocateUnique builds a block with storage from a and lets init construct
// the payload in place.
func AllocateUnique[T any, A alloc.Allocator](a A, init func(*T), opts ...Option) (Unique[T], error) {
	b, err := emplace(a, init, buildOptions(opts).mode())
	if err != nil {
		return Unique[T]{}, err
	}
	return Unique[T]{control: b.control, ptr: b.ptr}, nil
}

// MakeUniqueDeleter takes sole ownership of p; del runs once on Release.
func MakeUniqueDeleter[T any](p *T, del func(*T), opts ...Option) Unique[T] {
	if p == nil {
		return Unique[T]{}
	}
	b, err := emplaceDeleter(alloc.Heap{}, p, del, buildOptions(opts).mode())
	if err != nil {
		invariantf("autoptr: heap allocation failed: %v", err)
	}
	return Unique[T]{control: b.control, ptr: b.ptr}
}

// Get returns the element, or nil for an empty handle.
func (u Unique[T]) Get() *T { return u.ptr }

// IsEmpty reports whether u owns nothing.
func (u Unique[T]) IsEmpty() bool { return u.control == nil }

// Move transfers ownership to the result and leaves u empty.
func (u *Unique[T]) Move() Unique[T] {
	out := *u
	*u = Unique[T]{}
	return out
}

// Release destroys the payload, frees the block and leaves u empty.
func (u *Unique[T]) Release() {
	c := u.control
	*u = Unique[T]{}
	if c != nil {
		c.manualDestroy(true)
	}
}

// Share converts u into the first owner of a shared block and leaves u
// empty. Blocks built WithoutCounting cannot be shared; u is left untouched.
func (u *Unique[T]) Share() (Shared[T], error) {
	if u.control == nil {
		return Shared[T]{}, nil
	}
	if !u.control.counted() {
		return Shared[T]{}, errors.WithStack(ErrNotCounted)
	}
	out := Shared[T]{owner: owner{u.control}, ptr: u.ptr}
	*u = Unique[T]{}
	return out, nil
}
