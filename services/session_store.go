package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleet-analytics-api/metrics"
	"fleet-analytics-api/models"
)

// ErrNoUpload means the session has not stored a dataset of its own.
var ErrNoUpload = errors.New("session has no upload")

// SessionBackend keeps one table set per session id.
type SessionBackend interface {
	Load(ctx context.Context, sessionID string) (*models.TableSet, error)
	Save(ctx context.Context, sessionID string, ts *models.TableSet, ttl time.Duration) error
}

// SessionStore resolves the active table set of a session: its latest upload,
// or the shared default dataset when it has none.
type SessionStore struct {
	backend  SessionBackend
	defaults *DefaultDataset
	ttl      time.Duration
}

func NewSessionStore(backend SessionBackend, defaults *DefaultDataset, ttl time.Duration) *SessionStore {
	return &SessionStore{backend: backend, defaults: defaults, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.TableSet, models.Origin, error) {
	if sessionID != "" {
		ts, err := s.backend.Load(ctx, sessionID)
		if err == nil {
			return ts, models.OriginUpload, nil
		}
		if !errors.Is(err, ErrNoUpload) {
			return nil, "", err
		}
	}
	ts, err := s.defaults.Get(ctx)
	if err != nil {
		return nil, "", err
	}
	return ts, models.OriginDefault, nil
}

// Put replaces the session's active set. Only fully parsed sets reach here.
func (s *SessionStore) Put(ctx context.Context, sessionID string, ts *models.TableSet) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	return s.backend.Save(ctx, sessionID, ts, s.ttl)
}

type memoryEntry struct {
	ts      *models.TableSet
	expires time.Time
}

// MemoryBackend keeps uploads in process memory until their session expires.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryBackend) Load(_ context.Context, sessionID string) (*models.TableSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNoUpload
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, sessionID)
		metrics.ActiveSessions.Set(float64(len(m.entries)))
		return nil, ErrNoUpload
	}
	return e.ts, nil
}

func (m *MemoryBackend) Save(_ context.Context, sessionID string, ts *models.TableSet, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
	m.entries[sessionID] = memoryEntry{ts: ts, expires: now.Add(ttl)}
	metrics.ActiveSessions.Set(float64(len(m.entries)))
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

const sessionKeyPrefix = "fleet:session:"

// RedisBackend stores uploads as JSON under a per-session key with the
// session TTL, so several API replicas can serve the same session.
type RedisBackend struct {
	cache *CacheService
}

func NewRedisBackend(cache *CacheService) *RedisBackend {
	return &RedisBackend{cache: cache}
}

func (r *RedisBackend) Load(ctx context.Context, sessionID string) (*models.TableSet, error) {
	raw, err := r.cache.Get(ctx, sessionKeyPrefix+sessionID)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrNoUpload
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var ts models.TableSet
	if err := json.Unmarshal(raw, &ts); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &ts, nil
}

func (r *RedisBackend) Save(ctx context.Context, sessionID string, ts *models.TableSet, ttl time.Duration) error {
	raw, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	return r.cache.Set(ctx, sessionKeyPrefix+sessionID, raw, ttl)
}
