// Package alloc provides the storage collaborators used by autoptr builders.
//
// An Allocator hands out one contiguous region per managed block. Regions
// obtained from an allocator that is not scanned by the garbage collector are
// invisible to it. The builders keep their own bookkeeping (allocator,
// deleter, foreign payload) reachable; payloads that hold Go pointers need a
// Tracer that does the same.
package alloc

import (
	"reflect"
	"unsafe"
)

// Layout describes a single block request.
type Layout struct {
	Size  uintptr
	Align uintptr
	// Type is the Go type occupying the region. Scanned allocators use it to
	// hand out typed memory; raw allocators ignore it.
	Type reflect.Type
	// HasPointers reports whether Type contains Go pointers.
	HasPointers bool
}

// LayoutOf returns the layout for one value of type T.
func LayoutOf[T any]() Layout {
	t := reflect.TypeFor[T]()
	return Layout{
		Size:        t.Size(),
		Align:       uintptr(t.Align()),
		Type:        t,
		HasPointers: HasPointers(t),
	}
}

// LayoutFor returns the layout for a value of the dynamic type t.
func LayoutFor(t reflect.Type) Layout {
	return Layout{
		Size:        t.Size(),
		Align:       uintptr(t.Align()),
		Type:        t,
		HasPointers: HasPointers(t),
	}
}

// Allocator is the storage interface consumed by the builders.
type Allocator interface {
	// Allocate returns zeroed memory for l, or nil when the request cannot be
	// served.
	Allocate(l Layout) unsafe.Pointer
	// Deallocate returns memory previously obtained from Allocate with the
	// same layout.
	Deallocate(p unsafe.Pointer, l Layout)
	// Scanned reports whether the garbage collector traces pointers stored in
	// memory returned by Allocate.
	Scanned() bool
}

// Heap allocates typed memory from the Go heap. It is stateless, so builders
// do not store it alongside the control block.
type Heap struct{}

// Allocate returns a new value of l.Type, or untyped words when l has no
// Type.
func (Heap) Allocate(l Layout) unsafe.Pointer {
	if l.Type == nil {
		return unsafe.Pointer(unsafe.SliceData(make([]uint64, words(l.Size))))
	}
	return reflect.New(l.Type).UnsafePointer()
}

// Deallocate is a no-op: the garbage collector reclaims the region once the
// last handle referencing it is gone.
func (Heap) Deallocate(unsafe.Pointer, Layout) {}

// Scanned reports true.
func (Heap) Scanned() bool { return true }

// HasPointers reports whether values of t may contain Go pointers.
func HasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && HasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if HasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func words(size uintptr) uintptr {
	return (size + 7) / 8
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
