package autoptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/submada/autoptr-sub001/alloc"
)

func TestLeakCheck(t *testing.T) {
	restoreConfig(t)
	cfg := CurrentConfig()
	cfg.LeakCheck = true
	require.NoError(t, Configure(cfg))

	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	base := LiveBlocks()
	s := MakeShared(42)
	arr := MakeSharedSlice(3, "x")
	u, err := AllocateUnique(alloc.Heap{}, func(p *int) { *p = 1 }, WithoutCounting())
	require.NoError(t, err)
	assert.Equal(t, base+3, LiveBlocks())

	assert.Equal(t, base+3, ReportLeaks())
	assert.Equal(t, base+3, logs.FilterMessage("autoptr block still live").Len())

	w := s.Weak()
	s.Release()
	assert.Equal(t, base+3, LiveBlocks(), "weak handle keeps the block registered")
	w.Release()
	assert.Equal(t, base+2, LiveBlocks())
	arr.Release()
	u.Release()
	assert.Equal(t, base, LiveBlocks())
}

func TestInvariantIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	s := MakeShared(1, WithoutWeak())
	require.Panics(t, func() { s.Weak() })
	assert.Equal(t, 1, logs.FilterMessage("autoptr invariant violated").Len())
	s.Release()
}

func TestReportLeaksSkipsThreadLocalCounts(t *testing.T) {
	restoreConfig(t)
	cfg := CurrentConfig()
	cfg.LeakCheck = true
	require.NoError(t, Configure(cfg))

	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	local := MakeShared(7, ThreadLocal())
	shared := MakeShared(8)
	defer shared.Release()
	ReportLeaks()

	entries := logs.FilterField(zap.Bool("thread_local", true)).All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "use_count")
	assert.NotContains(t, entries[0].ContextMap(), "weak_count")

	counted := logs.FilterField(zap.Int64("use_count", 1)).Len()
	assert.GreaterOrEqual(t, counted, 1, "thread-safe blocks still report counts")
	local.Release()
}

func TestZeroCrossingsTracedAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	s := MakeShared(1)
	w := s.Weak()
	s.Release()
	assert.Equal(t, 1, logs.FilterMessage("autoptr shared count reached zero").Len())
	assert.Zero(t, logs.FilterMessage("autoptr weak count reached zero").Len(), "weak handle still holds the block")

	w.Release()
	assert.Equal(t, 1, logs.FilterMessage("autoptr weak count reached zero").Len())

	quiet, quietLogs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(quiet))
	assert.False(t, debugOn.Load())
	s = MakeShared(2)
	s.Release()
	assert.Zero(t, quietLogs.Len())
}
