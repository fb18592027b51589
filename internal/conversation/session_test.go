package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_ExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Hour)
	store.now = func() time.Time { return clock }

	session := NewSession("u1")
	session.State = StateAwaitingReportText
	session.Draft = &domain.ReportDraft{LessonNumber: 2}
	require.NoError(t, store.Save(ctx, session))

	session.Draft.Text = "mutated after save"
	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingReportText, got.State)
	assert.Empty(t, got.Draft.Text, "the store keeps its own copy")

	clock = clock.Add(2 * time.Hour)
	got, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Blank())
}

func TestMemorySessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(0)
	session := NewSession("u1")
	session.LastRetrievedLesson = 3
	require.NoError(t, store.Save(ctx, session))
	require.NoError(t, store.Delete(ctx, "u1"))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.Blank())
}

func TestMemorySessionStore_Purge(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(0)
	for _, uid := range []string{"u1", "u2"} {
		session := NewSession(uid)
		session.State = StateAwaitingReportPhoto
		session.LastRetrievedLesson = 1
		require.NoError(t, store.Save(ctx, session))
	}
	require.NoError(t, store.Purge(ctx))

	for _, uid := range []string{"u1", "u2"} {
		got, err := store.Get(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, uid, got.UserID)
		assert.True(t, got.Blank())
	}
	require.NoError(t, store.Save(ctx, NewSession("u3")), "store stays usable after a purge")
}

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

var _ driver.KeyValueDB = &mapKV{}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (kv *mapKV) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.err != nil {
		return kv.err
	}
	kv.data[key] = value
	kv.ttl[key] = expiration
	return nil
}

func (kv *mapKV) Get(ctx context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.err != nil {
		return "", kv.err
	}
	v, ok := kv.data[key]
	if !ok {
		return "", driver.ErrKeyNotFound
	}
	return v, nil
}

func (kv *mapKV) Exists(ctx context.Context, key string) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, ok := kv.data[key]
	return ok, nil
}

func (kv *mapKV) Del(ctx context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	for _, k := range keys {
		delete(kv.data, k)
	}
	return nil
}

func (kv *mapKV) Ping(ctx context.Context) error { return nil }

func (kv *mapKV) Close() error { return nil }

func TestKVSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	store := NewKVSessionStore(kv, "session:", 30*time.Minute)

	fresh, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, fresh.Blank())

	session := NewSession("u1")
	session.State = StateAwaitingReportPhoto
	session.Draft = &domain.ReportDraft{LessonNumber: 4, Text: "done"}
	session.LastRetrievedLesson = 4
	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, 30*time.Minute, kv.ttl["session:u1"])

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingReportPhoto, got.State)
	assert.Equal(t, &domain.ReportDraft{LessonNumber: 4, Text: "done"}, got.Draft)
	assert.Equal(t, 4, got.LastRetrievedLesson)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, "u1"))
	exists, _ := kv.Exists(ctx, "session:u1")
	assert.False(t, exists)
}

func TestKVSessionStore_Failures(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	store := NewKVSessionStore(kv, "session:", time.Minute)

	kv.data["session:bad"] = "{not json"
	_, err := store.Get(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrIO)

	kv.err = errors.New("connection refused")
	_, err = store.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.ErrorIs(t, store.Save(ctx, NewSession("u1")), domain.ErrIO)
}
