package autoptr

import (
	"io"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/submada/autoptr-sub001/internal/locktable"
)

// Config holds process-wide settings.
type Config struct {
	// LockShards is the stripe count of the atomic layer's lock table. It
	// must be a power of two and can only change before first use.
	LockShards int `toml:"lock_shards"`
	// LeakCheck registers every live block so leaks can be reported.
	LeakCheck bool `toml:"leak_check"`
	// ThreadLocalDefault makes the Make* helpers build thread-confined blocks.
	ThreadLocalDefault bool `toml:"thread_local_default"`
}

// DefaultConfig returns the settings in effect when Configure is never called.
func DefaultConfig() Config {
	return Config{LockShards: locktable.DefaultShards}
}

// DecodeConfig reads a TOML document. Missing keys keep their defaults.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "autoptr: decode config")
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a TOML file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "autoptr: load config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks that LockShards is a positive power of two.
func (c Config) Validate() error {
	if c.LockShards <= 0 || c.LockShards&(c.LockShards-1) != 0 {
		return errors.Wrapf(ErrInvalidConfig, "lock_shards must be a positive power of two, got %d", c.LockShards)
	}
	return nil
}

var (
	configMu      sync.Mutex
	current       = DefaultConfig()
	lockTable     *locktable.Table
	lockTableOnce sync.Once
)

// Configure applies cfg.
func Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if cfg.LockShards != current.LockShards && lockTable != nil {
		return errors.Wrapf(ErrLockTableInUse, "have %d shards, want %d", lockTable.Len(), cfg.LockShards)
	}
	current = cfg
	leakCheck.Store(cfg.LeakCheck)
	threadLocalDefault.Store(cfg.ThreadLocalDefault)
	Logger().Info("autoptr configured",
		zap.Int("lock_shards", cfg.LockShards),
		zap.Bool("leak_check", cfg.LeakCheck),
		zap.Bool("thread_local_default", cfg.ThreadLocalDefault))
	return nil
}

// CurrentConfig returns the settings in effect.
func CurrentConfig() Config {
	configMu.Lock()
	defer configMu.Unlock()
	return current
}

func locks() *locktable.Table {
	lockTableOnce.Do(func() {
		configMu.Lock()
		lockTable = locktable.New(current.LockShards)
		configMu.Unlock()
	})
	return lockTable
}
