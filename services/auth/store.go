package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ambulance/models"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "session:user:"
)

// SessionRecord is what the server remembers about a signed-in session.
type SessionRecord struct {
	SessionID string      `json:"sid"`
	UserID    string      `json:"uid"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	TokenHash string      `json:"tokenHash"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// SessionStore persists session records until they expire or are revoked.
type SessionStore interface {
	Save(ctx context.Context, rec SessionRecord, ttl time.Duration) error
	// Get returns models.ErrUnauthenticated when the session is unknown.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
	// DeleteUser removes every session of a user and returns their ids.
	DeleteUser(ctx context.Context, userID string) ([]string, error)
}

// RedisSessionStore keeps sessions in Redis with a per-user index set.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Save(ctx context.Context, rec SessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	userKey := userSessionKeyPrefix + rec.UserID
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+rec.SessionID, payload, ttl)
	pipe.SAdd(ctx, userKey, rec.SessionID)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.Unavailable("save session", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrUnauthenticated
	}
	if err != nil {
		return nil, models.Unavailable("load session", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	rec, err := s.Get(ctx, sessionID)
	if errors.Is(err, models.ErrUnauthenticated) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	pipe.SRem(ctx, userSessionKeyPrefix+rec.UserID, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.Unavailable("delete session", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteUser(ctx context.Context, userID string) ([]string, error) {
	userKey := userSessionKeyPrefix + userID
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, models.Unavailable("list user sessions", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, userKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return nil, models.Unavailable("delete user sessions", err)
	}
	return ids, nil
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memorySession
}

type memorySession struct {
	rec     SessionRecord
	expires time.Time
}

func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{now: now, sessions: make(map[string]memorySession)}
}

func (s *MemorySessionStore) Save(_ context.Context, rec SessionRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.SessionID] = memorySession{rec: rec, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	if !s.now().Before(entry.expires) {
		delete(s.sessions, sessionID)
		return nil, models.ErrUnauthenticated
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) DeleteUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, entry := range s.sessions {
		if entry.rec.UserID == userID {
			ids = append(ids, id)
			delete(s.sessions, id)
		}
	}
	return ids, nil
}
