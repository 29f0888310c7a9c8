package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openscholar/scholarship-agent/internal/logger"
)

// memoryStore keeps sessions in a map. Reads hand out deep copies and
// Save stores one, the same value semantics the redis driver gets from
// JSON round-trips; the map records themselves are only touched under
// the store lock. Eviction is lazy (on access, at most once per
// sweepInterval) and may additionally run on a periodic ticker via
// StartSweeper. A session accessed within the timeout window is never
// evicted, even when a sweep runs concurrently: both paths hold the
// same lock and compare against the refreshed last-activity time.
type memoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	timeout   time.Duration
	sweepEach time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newMemoryStore(cfg *storeConfig) *memoryStore {
	return &memoryStore{
		sessions:  make(map[string]*Session),
		timeout:   cfg.timeout,
		sweepEach: cfg.sweepInterval,
		now:       cfg.now,
		lastSweep: cfg.now(),
	}
}

// GetOrCreate implements Store.
func (m *memoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	if id != "" {
		if s, ok := m.sessions[id]; ok && !m.expired(s, now) {
			s.LastActivity = now
			return s.clone(), nil
		}
		// Expired or unknown id: fall through and issue a new session.
		delete(m.sessions, id)
	}

	s := newSession(uuid.NewString(), now)
	m.sessions[s.ID] = s
	return s.clone(), nil
}

// Get implements Store.
func (m *memoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	s, ok := m.sessions[id]
	if !ok || m.expired(s, now) {
		return nil, ErrNotFound
	}
	s.LastActivity = now
	return s.clone(), nil
}

// Save implements Store. The map keeps a private copy; the caller can
// keep mutating its session afterwards without racing concurrent reads.
func (m *memoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.LastActivity = m.now()
	m.sessions[s.ID] = s.clone()
	return nil
}

// Reset implements Store.
func (m *memoryStore) Reset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.resetInPlace(m.now())
	return nil
}

// Stats implements Store.
func (m *memoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(m.now())

	total := 0
	for _, s := range m.sessions {
		total += s.MessageCount
	}
	return Stats{
		ActiveSessions: len(m.sessions),
		TotalMessages:  total,
		TimeoutHours:   m.timeout.Hours(),
	}, nil
}

// Close implements Store.
func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	return nil
}

// StartSweeper runs a background goroutine that evicts expired sessions
// until ctx is cancelled.
func (m *memoryStore) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.sweepEach)
	go func() {
		defer ticker.Stop()
		logger.L.Info("session sweeper started", "interval", m.sweepEach, "timeout", m.timeout)
		for {
			select {
			case <-ticker.C:
				m.mu.Lock()
				m.forceSweepLocked(m.now())
				m.mu.Unlock()
			case <-ctx.Done():
				logger.L.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (m *memoryStore) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActivity) > m.timeout
}

// sweepLocked evicts expired sessions, at most once per sweep interval.
func (m *memoryStore) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepEach {
		return
	}
	m.forceSweepLocked(now)
}

func (m *memoryStore) forceSweepLocked(now time.Time) {
	evicted := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			evicted++
		}
	}
	m.lastSweep = now
	if evicted > 0 {
		logger.L.Info("evicted expired sessions", "count", evicted, "active", len(m.sessions))
	}
}
