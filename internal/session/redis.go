package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// redisStore persists sessions as JSON blobs with a TTL equal to the
// inactivity timeout, so expiry needs no sweep of its own. Sessions stay
// ephemeral; the driver only lets multiple replicas share the map.
type redisStore struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

func newRedisStore(cfg *storeConfig) *redisStore {
	return &redisStore{
		client:  cfg.redisClient,
		timeout: cfg.timeout,
		now:     cfg.now,
	}
}

// GetOrCreate implements Store.
func (r *redisStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		s, err := r.load(ctx, id)
		if err == nil {
			s.LastActivity = r.now()
			if err := r.persist(ctx, s); err != nil {
				return nil, err
			}
			return s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	s := newSession(uuid.NewString(), r.now())
	if err := r.persist(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get implements Store.
func (r *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	s, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Refresh the TTL on read so an active session never expires.
	if err := r.client.Expire(ctx, redisKeyPrefix+id, r.timeout).Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save implements Store.
func (r *redisStore) Save(ctx context.Context, s *Session) error {
	s.LastActivity = r.now()
	return r.persist(ctx, s)
}

// Reset implements Store.
func (r *redisStore) Reset(ctx context.Context, id string) error {
	s, err := r.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.resetInPlace(r.now())
	return r.persist(ctx, s)
}

// Stats implements Store. Walks session keys with SCAN; session counts
// for this service are small enough for that.
func (r *redisStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{TimeoutHours: r.timeout.Hours()}

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return Stats{}, err
		}
		var s Session
		if err := json.Unmarshal([]byte(val), &s); err != nil {
			continue
		}
		stats.ActiveSessions++
		stats.TotalMessages += s.MessageCount
	}
	if err := iter.Err(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Close implements Store.
func (r *redisStore) Close() error {
	return r.client.Close()
}

func (r *redisStore) load(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *redisStore) persist(ctx context.Context, s *Session) error {
	val, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+s.ID, val, r.timeout).Err()
}
