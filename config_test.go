package autoptr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func restoreConfig(t *testing.T) {
	t.Helper()
	prev := CurrentConfig()
	t.Cleanup(func() { require.NoError(t, Configure(prev)) })
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`
lock_shards = 128
leak_check = true
`))
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.LockShards)
	assert.True(t, cfg.LeakCheck)
	assert.False(t, cfg.ThreadLocalDefault)

	cfg, err = DecodeConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = DecodeConfig(strings.NewReader("lock_shards = 12"))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = DecodeConfig(strings.NewReader("lock_shards = ["))
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoptr.toml")
	require.NoError(t, os.WriteFile(path, []byte("thread_local_default = true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.ThreadLocalDefault)
	assert.Equal(t, DefaultConfig().LockShards, cfg.LockShards)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestConfigureThreadLocalDefault(t *testing.T) {
	restoreConfig(t)
	cfg := CurrentConfig()
	cfg.ThreadLocalDefault = true
	require.NoError(t, Configure(cfg))

	s := MakeShared(1)
	assert.False(t, s.IsThreadSafe())
	s.Release()

	s = MakeShared(1, ThreadSafe())
	assert.True(t, s.IsThreadSafe())
	s.Release()
}

func TestConfigureLockTableOnce(t *testing.T) {
	restoreConfig(t)
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	var slot AtomicShared[int]
	slot.Store(MakeShared(1))
	slot.Store(Shared[int]{})

	cfg := CurrentConfig()
	cfg.LockShards *= 2
	require.ErrorIs(t, Configure(cfg), ErrLockTableInUse)

	cfg = CurrentConfig()
	cfg.LeakCheck = !cfg.LeakCheck
	require.NoError(t, Configure(cfg))
	assert.Equal(t, 1, logs.FilterMessage("autoptr configured").Len())
}
