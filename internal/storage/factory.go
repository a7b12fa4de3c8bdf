package storage

import (
	"fmt"

	"rocket-backend/internal/config"
	"rocket-backend/pkg/logger"
)

// New 按配置创建并初始化存储；初始化失败时回退到内存存储
func New(cfg *config.Config) Storage {
	var store Storage

	switch cfg.Storage.Type {
	case "disk":
		store = NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	case "redis":
		store = NewRedisStorage(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
	default:
		store = NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize %s storage, falling back to memory: %v", cfg.Storage.Type, err)
		if closeErr := store.Close(); closeErr != nil {
			logger.Warnf("Failed to close %s storage: %v", cfg.Storage.Type, closeErr)
		}
		store = NewMemoryStorage()
		_ = store.Init()
	}

	logger.Infof("Session storage: %s", describe(store))
	return store
}

func describe(store Storage) string {
	switch s := store.(type) {
	case *DiskStorage:
		return fmt.Sprintf("disk (%s)", s.dataDir)
	case *RedisStorage:
		return fmt.Sprintf("redis (%s)", s.client.Options().Addr)
	default:
		return "memory"
	}
}
