package autoptr_test

import (
	"sync"
	"unsafe"

	"go.uber.org/atomic"

	"github.com/submada/autoptr-sub001/alloc"
)

// Payload counts its own destruction.
type Payload struct {
	ID    int64
	Drops *atomic.Int64
}

func (p *Payload) Drop() {
	if p.Drops != nil {
		p.Drops.Inc()
	}
}

// plainDrops counts drops of pointer-free payloads stored in unscanned memory.
var plainDrops atomic.Int64

type Plain struct {
	A, B int64
}

func (p *Plain) Drop() { plainDrops.Inc() }

// failingAllocator never serves a request.
type failingAllocator struct{}

func (failingAllocator) Allocate(alloc.Layout) unsafe.Pointer   { return nil }
func (failingAllocator) Deallocate(unsafe.Pointer, alloc.Layout) {}
func (failingAllocator) Scanned() bool                          { return true }

// recordingTracer remembers live ranges.
type recordingTracer struct {
	mu     sync.Mutex
	ranges map[unsafe.Pointer]uintptr
	adds   int
}

func newRecordingTracer() *recordingTracer {
	return &recordingTracer{ranges: make(map[unsafe.Pointer]uintptr)}
}

func (r *recordingTracer) AddRange(p unsafe.Pointer, size uintptr) {
	r.mu.Lock()
	r.ranges[p] = size
	r.adds++
	r.mu.Unlock()
}

func (r *recordingTracer) RemoveRange(p unsafe.Pointer) {
	r.mu.Lock()
	delete(r.ranges, p)
	r.mu.Unlock()
}

func (r *recordingTracer) live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ranges)
}
