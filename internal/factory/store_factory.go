package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/spam-dashboard/internal/adapters/store"
	"github.com/mikey/spam-dashboard/internal/config"
	"github.com/mikey/spam-dashboard/internal/ports"
)

// StoreFactory creates key-value backends based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDurableStore creates the backend holding history and preferences
func (f *StoreFactory) CreateDurableStore() (ports.Store, error) {
	storeCfg, err := f.cfg.GetDurableStore()
	if err != nil {
		return nil, fmt.Errorf("invalid durable store configuration: %w", err)
	}
	return f.create("durable", storeCfg)
}

// CreateSessionStore creates the short-lived backend for the last scan
func (f *StoreFactory) CreateSessionStore() (ports.Store, error) {
	storeCfg, err := f.cfg.GetSessionStore()
	if err != nil {
		return nil, fmt.Errorf("invalid session store configuration: %w", err)
	}
	return f.create("session", storeCfg)
}

func (f *StoreFactory) create(role string, storeCfg config.StoreConfig) (ports.Store, error) {
	logger := f.logger.With(zap.String("store", role), zap.String("type", storeCfg.Type))

	var (
		kv  ports.Store
		err error
	)
	switch storeCfg.Type {
	case "memory":
		kv = store.NewMemoryStore(logger, storeCfg.TTL, storeCfg.CleanupFrequency)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		var sqlite *store.SQLiteStore
		if sqlite, err = store.NewSQLiteStore(storeCfg.SQLitePath, logger); err == nil {
			kv = sqlite
		}
	case "mysql":
		var mysql *store.MySQLStore
		if mysql, err = store.NewMySQLStore(storeCfg.MySQLDSN, logger); err == nil {
			kv = mysql
		}
	case "redis":
		var redis *store.RedisStore
		if redis, err = store.NewRedisStore(storeCfg.RedisAddr, storeCfg.RedisPassword, storeCfg.RedisDB, storeCfg.KeyPrefix, storeCfg.TTL, logger); err == nil {
			kv = redis
		}
	default:
		return nil, fmt.Errorf("unsupported %s store type: %s", role, storeCfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", role, err)
	}

	logger.Info("Opened key-value store")
	return kv, nil
}

