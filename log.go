package autoptr

import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
	// debugOn caches whether the installed logger accepts Debug entries, so
	// counter updates do not take loggerMu.
	debugOn = atomic.NewBool(false)
)

// Logger returns the package logger. It is a no-op logger until SetLogger
// is called.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// SetLogger installs l as the package logger. A nil l restores the no-op
// logger. Zero-crossing traces are emitted when l has Debug enabled.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	debugOn.Store(l != nil && l.Core().Enabled(zapcore.DebugLevel))
	loggerMu.Unlock()
}

func blockField(c *ControlBlock) zap.Field {
	return zap.String("block", fmt.Sprintf("%p", unsafe.Pointer(c)))
}

// debugBlock traces a counter event on c.
func debugBlock(msg string, c *ControlBlock) {
	if debugOn.Load() {
		Logger().Debug(msg, blockField(c))
	}
}
