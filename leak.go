package autoptr

import (
	"reflect"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	leakCheck = atomic.NewBool(false)
	liveMu    sync.Mutex
	live      = make(map[*ControlBlock]reflect.Type)
)

func registerBlock(c *ControlBlock, payload reflect.Type) {
	if !leakCheck.Load() {
		return
	}
	liveMu.Lock()
	live[c] = payload
	liveMu.Unlock()
	c.mode |= modeTracked
}

func unregisterBlock(c *ControlBlock) {
	if c.mode&modeTracked == 0 {
		return
	}
	liveMu.Lock()
	delete(live, c)
	liveMu.Unlock()
}

// LiveBlocks returns the number of blocks registered while leak checking
// was enabled that have not been deallocated yet.
func LiveBlocks() int {
	liveMu.Lock()
	defer liveMu.Unlock()
	return len(live)
}

// ReportLeaks logs every registered live block and returns how many there were.
// Counts are reported only for thread-safe blocks; the counters of a
// thread-local block belong to its goroutine and are not read here.
func ReportLeaks() int {
	liveMu.Lock()
	defer liveMu.Unlock()
	for c, payload := range live {
		fields := []zap.Field{zap.Stringer("payload", payload), blockField(c)}
		if c.threadSafe() {
			fields = append(fields,
				zap.Int64("use_count", c.UseCount()),
				zap.Int64("weak_count", c.WeakCount()))
		} else {
			fields = append(fields, zap.Bool("thread_local", true))
		}
		Logger().Warn("autoptr block still live", fields...)
	}
	return len(live)
}
