// Package autoptr provides reference-counted ownership of values whose
// storage comes from pluggable allocators.
//
// Every managed value lives in a block that co-allocates a ControlBlock with
// the payload. Handles (Shared, SharedSlice, Weak, WeakSlice, Unique) pair a
// pointer to the control block with a pointer to the element they expose.
// When the owner count crosses zero the block's Dispatch table destroys the
// payload; once the weak count crosses zero the storage goes back to its
// allocator.
//
// Builders:
//
//   - MakeShared / AllocateShared: one value constructed in place.
//   - MakeSharedSlice / AllocateSharedSlice: a length plus n elements.
//   - MakeSharedDeleter / AllocateSharedDeleter: a foreign pointer released
//     through a caller-supplied deleter.
//   - MakeIntrusive / AllocateIntrusive: payloads embedding Intrusive.
//
// Handles are plain structs. Copy them with Clone and drop them with
// Release; a struct copy is not a new reference. To share one handle slot
// between goroutines use AtomicShared.
package autoptr
