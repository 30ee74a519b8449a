package autoptr

import (
	"sync"
	"unsafe"
)

// AtomicShared is a Shared slot that many goroutines may load and replace.
//
// The (control, element) pair is two words, so updates are guarded by a
// mutex picked from a process-wide table by the slot's address. The mutex is
// held only while the pair is read or swapped: values leaving the slot are
// released after it is unlocked, so a payload's Drop never runs under it.
//
// The zero value is an empty slot. An AtomicShared must not be copied after
// first use. Thread-local blocks are rejected.
type AtomicShared[T any] struct {
	v Shared[T]
}

// NewAtomicShared returns a slot holding init. The slot takes ownership of init.
func NewAtomicShared[T any](init Shared[T]) *AtomicShared[T] {
	checkShareable(init.owner)
	return &AtomicShared[T]{v: init}
}

func (a *AtomicShared[T]) mutex() *sync.Mutex {
	return locks().For(unsafe.Pointer(a))
}

func checkShareable(o owner) {
	if !o.IsThreadSafe() {
		invariantf("autoptr: thread-local block %p stored in an atomic slot", o.control)
	}
}

// Load returns a new owner of the current value, or an empty handle if the
// slot is empty. The caller must Release it.
func (a *AtomicShared[T]) Load() Shared[T] {
	mu := a.mutex()
	mu.Lock()
	v := a.v.Clone()
	mu.Unlock()
	return v
}

// Store replaces the current value with desired, taking ownership of it.
// The previous value is released once the slot is unlocked.
func (a *AtomicShared[T]) Store(desired Shared[T]) {
	checkShareable(desired.owner)
	mu := a.mutex()
	mu.Lock()
	old := a.v
	a.v = desired
	mu.Unlock()

	old.Release()
}

// Swap stores desired and returns the previous value, transferring
// ownership both ways.
func (a *AtomicShared[T]) Swap(desired Shared[T]) Shared[T] {
	checkShareable(desired.owner)
	mu := a.mutex()
	mu.Lock()
	old := a.v
	a.v = desired
	mu.Unlock()
	return old
}

// CompareAndSwap stores desired if the slot's element equals expected's.
// On failure expected is replaced by a new owner of the current value.
// desired is consumed either way.
func (a *AtomicShared[T]) CompareAndSwap(expected *Shared[T], desired Shared[T]) bool {
	checkShareable(desired.owner)
	mu := a.mutex()
	mu.Lock()
	if a.v.Equal(*expected) {
		old := a.v
		a.v = desired
		mu.Unlock()

		old.Release()
		return true
	}
	cur := a.v.Clone()
	mu.Unlock()

	expected.Assign(cur)
	desired.Release()
	return false
}

// CompareAndSwapWeak is CompareAndSwap. The mutex-guarded slot never fails
// spuriously.
func (a *AtomicShared[T]) CompareAndSwapWeak(expected *Shared[T], desired Shared[T]) bool {
	return a.CompareAndSwap(expected, desired)
}

// With runs fn with the current element (nil if the slot is empty) and
// releases its reference afterwards.
func (a *AtomicShared[T]) With(fn func(*T)) {
	v := a.Load()
	defer v.Release()
	fn(v.Get())
}
