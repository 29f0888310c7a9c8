package session

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	timeout       time.Duration
	sweepInterval time.Duration
	redisClient   *redis.Client
	now           func() time.Time
}

// WithTimeout sets the inactivity timeout after which sessions expire.
func WithTimeout(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.timeout = d
	}
}

// WithSweepInterval sets how often the memory driver sweeps for expired
// sessions.
func WithSweepInterval(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.sweepInterval = d
	}
}

// WithRedisClient sets the client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) {
		c.now = now
	}
}
