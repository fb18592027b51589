package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

var _ driver.KeyValueDB = &mapKV{}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (m *mapKV) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl[key] = expiration
	return nil
}

func (m *mapKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", driver.ErrKeyNotFound
	}
	return v, nil
}

func (m *mapKV) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *mapKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapKV) Ping(ctx context.Context) error { return nil }
func (m *mapKV) Close() error                   { return nil }

func TestKVBackend_LoadSave(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	backend := NewKVBackend(kv, "lessonrelay:snapshot")

	snap, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NewSnapshot(), snap)
	ok, _ := kv.Exists(ctx, "lessonrelay:snapshot")
	assert.True(t, ok, "fresh document is persisted on first load")
	assert.Equal(t, time.Duration(0), kv.ttl["lessonrelay:snapshot"])

	seed(snap)
	require.NoError(t, backend.Save(ctx, snap))
	before := kv.data["lessonrelay:snapshot"]

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)
	require.NoError(t, backend.Save(ctx, loaded))
	assert.Equal(t, before, kv.data["lessonrelay:snapshot"])

	require.NoError(t, backend.Reset(ctx))
	loaded, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NewSnapshot(), loaded)
}
