package autoptr

import (
	"cmp"
	"unsafe"
)

// weakRef is the counter side of a weak handle.
type weakRef struct {
	control *ControlBlock
}

// IsEmpty reports whether the handle refers to no block.
func (w weakRef) IsEmpty() bool { return w.control == nil }

// UseCount returns the number of owners of the block.
func (w weakRef) UseCount() int64 { return w.control.UseCount() }

// WeakCount returns the number of weak handles to the block.
func (w weakRef) WeakCount() int64 { return w.control.WeakCount() }

// Expired reports whether the block had no owners when it was checked. The
// answer can be stale by the time it is returned; use Lock to act on it.
func (w weakRef) Expired() bool { return w.UseCount() == 0 }

func (w weakRef) upgrade() bool {
	return w.control != nil && w.control.tryAddSharedIfAlive()
}

func (w weakRef) cloneRef() {
	if w.control != nil {
		w.control.addRef(true)
	}
}

func (w weakRef) releaseRef() {
	if w.control != nil {
		w.control.release(true)
	}
}

// Weak refers to a value without keeping it alive. It keeps the block's
// storage reserved until released.
type Weak[T any] struct {
	weakRef
	ptr *T
}

// Lock returns a new owner if the value is still alive, or an empty handle.
func (w Weak[T]) Lock() Shared[T] {
	if !w.upgrade() {
		return Shared[T]{}
	}
	return Shared[T]{owner: owner{w.control}, ptr: w.ptr}
}

// Clone returns another weak handle to the same block.
func (w Weak[T]) Clone() Weak[T] {
	w.cloneRef()
	return w
}

// Move transfers the reference to the result and leaves w empty.
func (w *Weak[T]) Move() Weak[T] {
	out := *w
	*w = Weak[T]{}
	return out
}

// Assign releases the current value of w and takes over v.
func (w *Weak[T]) Assign(v Weak[T]) {
	old := *w
	*w = v
	old.Release()
}

// Release drops the weak reference and leaves w empty.
func (w *Weak[T]) Release() {
	old := w.weakRef
	*w = Weak[T]{}
	old.releaseRef()
}

// Equal reports whether both handles refer to the same element. The
// element need not be alive.
func (w Weak[T]) Equal(v Weak[T]) bool { return w.ptr == v.ptr }

// Compare orders handles by element address, like Shared.Compare.
func (w Weak[T]) Compare(v Weak[T]) int {
	return cmp.Compare(uintptr(unsafe.Pointer(w.ptr)), uintptr(unsafe.Pointer(v.ptr)))
}

// WeakSlice is the weak counterpart of SharedSlice.
type WeakSlice[T any] struct {
	weakRef
	elems []T
}

// Lock returns a new owner if the elements are still alive, or an empty
// handle.
func (w WeakSlice[T]) Lock() SharedSlice[T] {
	if !w.upgrade() {
		return SharedSlice[T]{}
	}
	return SharedSlice[T]{owner: owner{w.control}, elems: w.elems}
}

// Clone returns another weak handle to the same block.
func (w WeakSlice[T]) Clone() WeakSlice[T] {
	w.cloneRef()
	return w
}

// Move transfers the reference to the result and leaves w empty.
func (w *WeakSlice[T]) Move() WeakSlice[T] {
	out := *w
	*w = WeakSlice[T]{}
	return out
}

// Assign releases the current value of w and takes over v.
func (w *WeakSlice[T]) Assign(v WeakSlice[T]) {
	old := *w
	*w = v
	old.Release()
}

// Release drops the weak reference and leaves w empty.
func (w *WeakSlice[T]) Release() {
	old := w.weakRef
	*w = WeakSlice[T]{}
	old.releaseRef()
}

// Equal reports whether both handles cover the same elements, as
// SharedSlice.Equal does.
func (w WeakSlice[T]) Equal(v WeakSlice[T]) bool { return sliceEqual(w.elems, v.elems) }

// Compare orders handles by the address one past their last element.
func (w WeakSlice[T]) Compare(v WeakSlice[T]) int { return sliceCompare(w.elems, v.elems) }
