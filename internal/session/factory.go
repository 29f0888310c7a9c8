package session

import (
	"context"
	"time"
)

// StoreType selects the session store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// Sweeper is implemented by stores that evict in the background.
type Sweeper interface {
	StartSweeper(ctx context.Context)
}

// NewStore creates a session store of the given type. The memory driver
// is the default deployment; redis requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{
		timeout:       2 * time.Hour,
		sweepInterval: 30 * time.Minute,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(cfg), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg), nil
	default:
		return nil, ErrInvalidStoreType
	}
}
