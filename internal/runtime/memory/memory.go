// Package memory keeps short-term per-user facts such as the last query.
// Writes are last-write-wins per (user, key); users never share state.
package memory

import (
	"context"
	"sync"
	"time"
)

const KeyLastQuery = "last_query"

// AnonymousUser is used when a request carries no user id.
const AnonymousUser = "anon"

type Store interface {
	Update(ctx context.Context, userID, key, value string) error
	Get(ctx context.Context, userID, key string) (string, bool, error)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemoryStore is a process-local Store. A zero TTL keeps entries forever.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *InMemoryStore) Update(_ context.Context, userID, key, value string) error {
	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	facts, ok := s.users[userID]
	if !ok {
		facts = make(map[string]entry)
		s.users[userID] = facts
	}
	facts[key] = e
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, userID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[userID][key]
	if !ok || (!e.expiresAt.IsZero() && s.now().After(e.expiresAt)) {
		return "", false, nil
	}
	return e.value, true, nil
}
