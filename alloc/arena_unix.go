//go:build unix

package alloc

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Arena serves blocks from a fixed anonymous mapping outside the Go heap.
//
// Allocation bumps through the mapping; freed regions are kept on free
// lists per size and alignment and reused before bumping further. Allocate
// returns nil once the mapping is exhausted.
type Arena struct {
	mu   sync.Mutex
	mem  []byte
	off  uintptr
	free map[freeClass][]unsafe.Pointer
	live int
}

// freeClass keys a free list. Regions are only reused for requests with
// the same size and alignment they were carved for.
type freeClass struct {
	size, align uintptr
}

// NewArena maps size bytes of anonymous memory.
func NewArena(size int) (*Arena, error) {
	if size <= 0 {
		return nil, errors.Newf("alloc: invalid arena size %d", size)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "alloc: mmap %d bytes", size)
	}
	return &Arena{
		mem:  mem,
		free: make(map[freeClass][]unsafe.Pointer),
	}, nil
}

// Allocate reuses a freed region of the same size and alignment, or bumps
// through the mapping. It returns nil when the mapping is exhausted or
// closed.
func (a *Arena) Allocate(l Layout) unsafe.Pointer {
	size := alignUp(max(l.Size, 1), 8)
	align := max(l.Align, 8)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mem == nil {
		return nil
	}
	class := freeClass{size, align}
	if list := a.free[class]; len(list) > 0 {
		p := list[len(list)-1]
		a.free[class] = list[:len(list)-1]
		a.live++
		return p
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.mem)))
	start := alignUp(base+a.off, align) - base
	if start+size > uintptr(len(a.mem)) {
		return nil
	}
	a.off = start + size
	a.live++
	return unsafe.Pointer(&a.mem[start])
}

// Deallocate clears the region and keeps it for reuse.
func (a *Arena) Deallocate(p unsafe.Pointer, l Layout) {
	if p == nil {
		return
	}
	class := freeClass{alignUp(max(l.Size, 1), 8), max(l.Align, 8)}
	clear(unsafe.Slice((*byte)(p), class.size))

	a.mu.Lock()
	a.free[class] = append(a.free[class], p)
	a.live--
	a.mu.Unlock()
}

// Scanned reports false: the mapping lives outside the Go heap.
func (a *Arena) Scanned() bool { return false }

// Live returns the number of regions handed out and not yet returned.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Close unmaps the arena. Every block allocated from it must already be
// released.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mem == nil {
		return nil
	}
	if a.live != 0 {
		return errors.Newf("alloc: closing arena with %d live regions", a.live)
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	a.free = nil
	return errors.Wrap(err, "alloc: munmap")
}
