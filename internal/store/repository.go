package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/pot-code/lessonrelay/internal/domain"
	"go.elastic.co/apm"
)

// Repository serializes every transaction against the snapshot document.
// Updates hold the write lock across load, mutate and save so concurrent
// writers can never overwrite each other's changes.
type Repository struct {
	backend domain.SnapshotBackend
	media   domain.MediaStorage
	mu      sync.RWMutex
}

var _ domain.Store = &Repository{}

// NewRepository .
func NewRepository(backend domain.SnapshotBackend, media domain.MediaStorage) *Repository {
	return &Repository{backend: backend, media: media}
}

// View run fn against a freshly loaded document, changes made by fn are discarded
func (r *Repository) View(ctx context.Context, fn func(snap *domain.Snapshot) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, err := r.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load snapshot: %w", domain.ErrIO, err)
	}
	return fn(snap)
}

// Update run fn against the document and save it when fn succeeds
func (r *Repository) Update(ctx context.Context, fn func(snap *domain.Snapshot) error) error {
	apmSpan, _ := apm.StartSpan(ctx, "Repository.Update", "db")
	defer apmSpan.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load snapshot: %w", domain.ErrIO, err)
	}
	if err := fn(snap); err != nil {
		return err
	}
	if err := r.backend.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: save snapshot: %w", domain.ErrIO, err)
	}
	return nil
}

// Reset wipe the document and every stored media object
func (r *Repository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Reset(ctx); err != nil {
		return fmt.Errorf("%w: reset snapshot: %w", domain.ErrIO, err)
	}
	if err := r.media.Purge(ctx); err != nil {
		return fmt.Errorf("%w: purge media: %w", domain.ErrIO, err)
	}
	return nil
}

// Ping check that the backend can still produce the document
func (r *Repository) Ping(ctx context.Context) error {
	return r.View(ctx, func(*domain.Snapshot) error { return nil })
}
