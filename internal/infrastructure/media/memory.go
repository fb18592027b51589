package media

import (
	"context"
	"sync"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// MemoryStorage keeps media in process memory, used for development runs
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ domain.MediaStorage = &MemoryStorage{}

// NewMemoryStorage .
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (ms *MemoryStorage) Store(ctx context.Context, key string, data []byte) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	ms.mu.Lock()
	ms.objects[cleaned] = buf
	ms.mu.Unlock()
	return cleaned, nil
}

func (ms *MemoryStorage) Read(ctx context.Context, path string) ([]byte, error) {
	cleaned, err := cleanKey(path)
	if err != nil {
		return nil, err
	}
	ms.mu.RLock()
	data, ok := ms.objects[cleaned]
	ms.mu.RUnlock()
	if !ok {
		return nil, domain.ErrMediaNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (ms *MemoryStorage) Delete(ctx context.Context, path string) error {
	cleaned, err := cleanKey(path)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	delete(ms.objects, cleaned)
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStorage) Purge(ctx context.Context) error {
	ms.mu.Lock()
	ms.objects = make(map[string][]byte)
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Len number of stored objects
func (ms *MemoryStorage) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.objects)
}
