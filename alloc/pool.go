package alloc

import (
	"math/bits"
	"sync"
	"unsafe"
)

const (
	minClassShift = 4
	maxClassShift = 16
	numClasses    = maxClassShift - minClassShift + 1
)

// Pool recycles raw regions through per-size-class sync.Pools.
//
// Regions are returned to their class when a block is deallocated and are
// zeroed before reuse. Requests above the largest class bypass the pools.
// Pool memory is not scanned, so it suits pointer-free payloads.
type Pool struct {
	classes [numClasses]sync.Pool
	// Reset is called on a region before it goes back to its class.
	// Return false to drop the region instead (the GC reclaims it).
	Reset func(p unsafe.Pointer, size uintptr) bool
}

// NewPool creates a Pool whose regions are cleared before reuse.
func NewPool() *Pool {
	p := &Pool{
		Reset: func(ptr unsafe.Pointer, size uintptr) bool {
			clear(unsafe.Slice((*byte)(ptr), size))
			return true
		},
	}
	for i := range p.classes {
		n := words(classSize(i))
		p.classes[i] = sync.Pool{
			New: func() any {
				return unsafe.Pointer(unsafe.SliceData(make([]uint64, n)))
			},
		}
	}
	return p
}

func classSize(idx int) uintptr {
	return 1 << (minClassShift + idx)
}

// classIndex returns the smallest class holding size bytes, or -1.
func classIndex(size uintptr) int {
	if size <= 1<<minClassShift {
		return 0
	}
	idx := bits.Len64(uint64(size-1)) - minClassShift
	if idx >= numClasses {
		return -1
	}
	return idx
}

// Allocate returns a zeroed region from the smallest class that fits l.
// Alignments above 8 are not served.
func (p *Pool) Allocate(l Layout) unsafe.Pointer {
	if l.Align > 8 {
		return nil
	}
	idx := classIndex(l.Size)
	if idx < 0 {
		return unsafe.Pointer(unsafe.SliceData(make([]uint64, words(l.Size))))
	}
	return p.classes[idx].Get().(unsafe.Pointer)
}

// Deallocate resets the region and returns it to its class. Regions larger
// than the biggest class are left to the collector.
func (p *Pool) Deallocate(ptr unsafe.Pointer, l Layout) {
	if ptr == nil {
		return
	}
	idx := classIndex(l.Size)
	if idx < 0 {
		return
	}
	if p.Reset == nil || p.Reset(ptr, classSize(idx)) {
		p.classes[idx].Put(ptr)
	}
}

// Scanned reports false: regions are untyped words.
func (p *Pool) Scanned() bool { return false }
