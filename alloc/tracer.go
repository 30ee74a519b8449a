package alloc

import "unsafe"

// Tracer is notified when a block that may contain Go pointers is placed in
// memory the garbage collector does not scan.
type Tracer interface {
	AddRange(p unsafe.Pointer, size uintptr)
	RemoveRange(p unsafe.Pointer)
}

// NopTracer ignores every notification.
type NopTracer struct{}

// AddRange does nothing.
func (NopTracer) AddRange(unsafe.Pointer, uintptr) {}
// RemoveRange does nothing.
func (NopTracer) RemoveRange(unsafe.Pointer) {}
