package imports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is how long a preview stays committable.
const DefaultSessionTTL = 30 * time.Minute

// SessionStore keeps previewed results between preview and commit.
type SessionStore[T any] interface {
	Save(ctx context.Context, result *ImportResult[T]) error
	Load(ctx context.Context, sessionID string) (*ImportResult[T], error)
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessions keeps sessions in process memory.
// Entries are removed after the TTL.
type MemorySessions[T any] struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]memorySession[T]
}

type memorySession[T any] struct {
	result  *ImportResult[T]
	expires time.Time
}

func NewMemorySessions[T any](ttl time.Duration) *MemorySessions[T] {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessions[T]{
		ttl:     ttl,
		entries: make(map[string]memorySession[T]),
	}
}

func (m *MemorySessions[T]) Save(_ context.Context, result *ImportResult[T]) error {
	id := result.SessionID
	m.mu.Lock()
	m.entries[id] = memorySession[T]{result: result, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	time.AfterFunc(m.ttl, func() { m.expire(id) })
	return nil
}

func (m *MemorySessions[T]) Load(_ context.Context, sessionID string) (*ImportResult[T], error) {
	m.mu.RLock()
	e, ok := m.entries[sessionID]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		return nil, ErrSessionNotFound
	}
	return e.result, nil
}

func (m *MemorySessions[T]) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (m *MemorySessions[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemorySessions[T]) expire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok && !time.Now().Before(e.expires) {
		delete(m.entries, id)
	}
}

// RedisSessions stores sessions as JSON in redis, so any server instance
// can commit a preview made by another.
type RedisSessions[T any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSessions stores sessions under "<prefix><sessionID>".
func NewRedisSessions[T any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSessions[T] {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessions[T]{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSessions[T]) key(id string) string { return s.prefix + id }

func (s *RedisSessions[T]) Save(ctx context.Context, result *ImportResult[T]) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(result.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessions[T]) Load(ctx context.Context, sessionID string) (*ImportResult[T], error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var result ImportResult[T]
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &result, nil
}

func (s *RedisSessions[T]) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
