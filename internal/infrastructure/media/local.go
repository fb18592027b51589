package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// LocalStorage keeps media as plain files below a root directory
type LocalStorage struct {
	root string
}

var _ domain.MediaStorage = &LocalStorage{}

// NewLocalStorage create the root directory if necessary
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

func (ls *LocalStorage) resolve(key string) (string, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(ls.root, filepath.FromSlash(cleaned)), nil
}

// Store write data under key, replacing any existing file. The returned path is the cleaned key
func (ls *LocalStorage) Store(ctx context.Context, key string, data []byte) (string, error) {
	cleaned, target, err := ls.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return cleaned, nil
}

func (ls *LocalStorage) Read(ctx context.Context, path string) ([]byte, error) {
	_, target, err := ls.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrMediaNotFound
	}
	return data, err
}

// Delete remove the file, a missing file is not an error
func (ls *LocalStorage) Delete(ctx context.Context, path string) error {
	_, target, err := ls.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (ls *LocalStorage) Purge(ctx context.Context) error {
	if err := os.RemoveAll(ls.root); err != nil {
		return err
	}
	return os.MkdirAll(ls.root, 0755)
}

func (ls *LocalStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(ls.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("media root %s is not a directory", ls.root)
	}
	return nil
}
