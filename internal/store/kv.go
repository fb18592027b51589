package store

import (
	"context"
	"errors"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/driver"
)

// KVBackend keeps the document under one key of the kv storage
type KVBackend struct {
	db  driver.KeyValueDB
	key string
}

var _ domain.SnapshotBackend = &KVBackend{}

// NewKVBackend .
func NewKVBackend(db driver.KeyValueDB, key string) *KVBackend {
	return &KVBackend{db: db, key: key}
}

func (kb *KVBackend) Load(ctx context.Context) (*domain.Snapshot, error) {
	value, err := kb.db.Get(ctx, kb.key)
	if errors.Is(err, driver.ErrKeyNotFound) {
		snap := domain.NewSnapshot()
		if err := kb.Save(ctx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot([]byte(value))
}

func (kb *KVBackend) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	return kb.db.SetEX(ctx, kb.key, string(data), 0)
}

func (kb *KVBackend) Reset(ctx context.Context) error {
	return kb.Save(ctx, domain.NewSnapshot())
}
