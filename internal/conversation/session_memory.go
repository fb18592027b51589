package conversation

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore keeps sessions in process memory, idle sessions older than ttl are dropped
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

var (
	_ SessionStore  = &MemorySessionStore{}
	_ SessionPurger = &MemorySessionStore{}
)

// NewMemorySessionStore zero ttl keeps sessions forever
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (ms *MemorySessionStore) Get(ctx context.Context, userID string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.sessions[userID]
	if !ok {
		return NewSession(userID), nil
	}
	if ms.ttl > 0 && ms.now().Sub(stored.UpdatedAt) > ms.ttl {
		delete(ms.sessions, userID)
		return NewSession(userID), nil
	}
	return copySession(stored), nil
}

func (ms *MemorySessionStore) Save(ctx context.Context, session *Session) error {
	saved := copySession(session)
	saved.UpdatedAt = ms.now()

	ms.mu.Lock()
	ms.sessions[session.UserID] = saved
	ms.mu.Unlock()
	return nil
}

func (ms *MemorySessionStore) Delete(ctx context.Context, userID string) error {
	ms.mu.Lock()
	delete(ms.sessions, userID)
	ms.mu.Unlock()
	return nil
}

func (ms *MemorySessionStore) Purge(ctx context.Context) error {
	ms.mu.Lock()
	ms.sessions = make(map[string]*Session)
	ms.mu.Unlock()
	return nil
}

func copySession(s *Session) *Session {
	c := *s
	if s.Draft != nil {
		draft := *s.Draft
		c.Draft = &draft
	}
	return &c
}
