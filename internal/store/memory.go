package store

import (
	"context"
	"sync"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// MemoryBackend holds the encoded document in process memory,
// every Load decodes a private copy
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

var _ domain.SnapshotBackend = &MemoryBackend{}

// NewMemoryBackend .
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (mb *MemoryBackend) Load(ctx context.Context) (*domain.Snapshot, error) {
	mb.mu.Lock()
	data := mb.data
	mb.mu.Unlock()

	if data == nil {
		snap := domain.NewSnapshot()
		if err := mb.Save(ctx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	}
	return decodeSnapshot(data)
}

func (mb *MemoryBackend) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	mb.mu.Lock()
	mb.data = data
	mb.mu.Unlock()
	return nil
}

func (mb *MemoryBackend) Reset(ctx context.Context) error {
	return mb.Save(ctx, domain.NewSnapshot())
}
