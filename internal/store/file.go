package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// FileBackend keeps the document in a single json file, replaced atomically on save
type FileBackend struct {
	path string
}

var _ domain.SnapshotBackend = &FileBackend{}

// NewFileBackend .
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (fb *FileBackend) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(fb.path)
	if errors.Is(err, fs.ErrNotExist) {
		snap := domain.NewSnapshot()
		if err := fb.Save(ctx, snap); err != nil {
			return nil, err
		}
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

func (fb *FileBackend) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fb.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fb.path)
}

func (fb *FileBackend) Reset(ctx context.Context) error {
	return fb.Save(ctx, domain.NewSnapshot())
}
