package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/driver"
)

// KVSessionStore keeps sessions as JSON documents in the kv storage, expiring after ttl
type KVSessionStore struct {
	kv     driver.KeyValueDB
	prefix string
	ttl    time.Duration
}

var _ SessionStore = &KVSessionStore{}

// NewKVSessionStore keys are prefix + user id
func NewKVSessionStore(kv driver.KeyValueDB, prefix string, ttl time.Duration) *KVSessionStore {
	return &KVSessionStore{kv, prefix, ttl}
}

func (ks *KVSessionStore) key(userID string) string {
	return ks.prefix + userID
}

func (ks *KVSessionStore) Get(ctx context.Context, userID string) (*Session, error) {
	raw, err := ks.kv.Get(ctx, ks.key(userID))
	if errors.Is(err, driver.ErrKeyNotFound) {
		return NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %w", domain.ErrIO, err)
	}

	session := new(Session)
	if err := json.Unmarshal([]byte(raw), session); err != nil {
		return nil, fmt.Errorf("%w: decode session: %w", domain.ErrIO, err)
	}
	session.UserID = userID
	return session, nil
}

func (ks *KVSessionStore) Save(ctx context.Context, session *Session) error {
	saved := *session
	saved.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(&saved)
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", domain.ErrIO, err)
	}
	if err := ks.kv.SetEX(ctx, ks.key(session.UserID), string(raw), ks.ttl); err != nil {
		return fmt.Errorf("%w: save session: %w", domain.ErrIO, err)
	}
	return nil
}

func (ks *KVSessionStore) Delete(ctx context.Context, userID string) error {
	if err := ks.kv.Del(ctx, ks.key(userID)); err != nil {
		return fmt.Errorf("%w: delete session: %w", domain.ErrIO, err)
	}
	return nil
}
