package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNoSession is returned when a value is written without a session id.
var ErrNoSession = errors.New("no session")

// Store keeps JSON-encoded values scoped to a session. Values expire with
// the session.
type Store interface {
	// Get decodes the value stored under key into dst. It reports false when
	// nothing is stored.
	Get(ctx context.Context, sessionID, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, sessionID, key string, v interface{}) error
}

// ---------------------------------------------------------------------------
// MemoryStore
// ---------------------------------------------------------------------------

type memoryEntry struct {
	values    map[string][]byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore whose sessions live for ttl after
// their first write.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID, key string, dst interface{}) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		ok = false
	}
	var raw []byte
	if ok {
		raw, ok = entry.values[key]
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, key string, v interface{}) error {
	if sessionID == "" {
		return ErrNoSession
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		entry = &memoryEntry{values: make(map[string][]byte), expiresAt: s.now().Add(s.ttl)}
		s.sessions[sessionID] = entry
	}
	entry.values[key] = raw
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// ---------------------------------------------------------------------------
// RedisStore
// ---------------------------------------------------------------------------

// RedisStore keeps session values in Redis under cvrisk:session:<id>:<key>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore parses a redis:// URL and returns a connected store.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(sessionID, key string) string {
	return "cvrisk:session:" + sessionID + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string, dst interface{}) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	raw, err := s.client.Get(ctx, redisKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode session value %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key string, v interface{}) error {
	if sessionID == "" {
		return ErrNoSession
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	if err := s.client.Set(ctx, redisKey(sessionID, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
