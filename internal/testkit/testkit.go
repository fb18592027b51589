// Package testkit in-memory collaborators shared by the workflow tests
package testkit

import (
	"context"
	"sync"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/media"
	"github.com/pot-code/lessonrelay/internal/store"
)

// Messenger records every delivered message per user
type Messenger struct {
	mu          sync.Mutex
	sent        map[string][]*domain.OutboundMessage
	unreachable map[string]bool
}

var _ domain.Messenger = &Messenger{}

// NewMessenger users listed in unreachable fail with domain.ErrNotConnected
func NewMessenger(unreachable ...string) *Messenger {
	m := &Messenger{
		sent:        make(map[string][]*domain.OutboundMessage),
		unreachable: make(map[string]bool),
	}
	for _, id := range unreachable {
		m.unreachable[id] = true
	}
	return m
}

func (m *Messenger) Send(ctx context.Context, userID string, msg *domain.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unreachable[userID] {
		return domain.ErrNotConnected
	}
	m.sent[userID] = append(m.sent[userID], msg)
	return nil
}

// Messages messages delivered to userID so far
func (m *Messenger) Messages(userID string) []*domain.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.OutboundMessage, len(m.sent[userID]))
	copy(out, m.sent[userID])
	return out
}

// Last most recent message delivered to userID, nil if none
func (m *Messenger) Last(userID string) *domain.OutboundMessage {
	msgs := m.Messages(userID)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// Total number of delivered messages
func (m *Messenger) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msgs := range m.sent {
		n += len(msgs)
	}
	return n
}

// Clear forget delivered messages
func (m *Messenger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = make(map[string][]*domain.OutboundMessage)
}

// NewStore repository over the memory backend and memory media
func NewStore() (*store.Repository, *media.MemoryStorage) {
	storage := media.NewMemoryStorage()
	return store.NewRepository(store.NewMemoryBackend(), storage), storage
}

// Seed put users straight into the store
func Seed(ctx context.Context, s domain.Store, users ...*domain.UserModel) error {
	return s.Update(ctx, func(snap *domain.Snapshot) error {
		for _, u := range users {
			copied := *u
			snap.Users[u.ID] = &copied
		}
		return nil
	})
}

// SeedLessons put lesson slots straight into the store and move the counter past them
func SeedLessons(ctx context.Context, s domain.Store, lessons ...*domain.LessonModel) error {
	return s.Update(ctx, func(snap *domain.Snapshot) error {
		for _, l := range lessons {
			copied := *l
			snap.Lessons[l.Number] = &copied
			if l.Number >= snap.LessonCounter {
				snap.LessonCounter = l.Number + 1
			}
		}
		return nil
	})
}
