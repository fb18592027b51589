package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pot-code/lessonrelay/internal/domain"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage keeps media as objects in a Google Cloud Storage bucket
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ domain.MediaStorage = &GCSStorage{}

// NewGCSStorage create a storage client using application default credentials
func NewGCSStorage(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStorage, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (gs *GCSStorage) objectName(key string) (string, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	if gs.prefix == "" {
		return cleaned, cleaned, nil
	}
	return cleaned, path.Join(gs.prefix, cleaned), nil
}

func (gs *GCSStorage) Store(ctx context.Context, key string, data []byte) (string, error) {
	cleaned, name, err := gs.objectName(key)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := gs.client.Bucket(gs.bucket).Object(name).NewWriter(ctx)
	w.ContentType = ContentType(name)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close object writer %q: %w", name, err)
	}
	return cleaned, nil
}

func (gs *GCSStorage) Read(ctx context.Context, p string) ([]byte, error) {
	_, name, err := gs.objectName(p)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := gs.client.Bucket(gs.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, domain.ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (gs *GCSStorage) Delete(ctx context.Context, p string) error {
	_, name, err := gs.objectName(p)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := gs.client.Bucket(gs.bucket).Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %q: %w", name, err)
	}
	return nil
}

// Purge delete every object below the configured prefix
func (gs *GCSStorage) Purge(ctx context.Context) error {
	query := &storage.Query{}
	if gs.prefix != "" {
		query.Prefix = gs.prefix + "/"
	}
	bucket := gs.client.Bucket(gs.bucket)
	it := bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("failed to delete object %q: %w", attrs.Name, err)
		}
	}
	return nil
}

func (gs *GCSStorage) Ping(ctx context.Context) error {
	_, err := gs.client.Bucket(gs.bucket).Attrs(ctx)
	return err
}

// Close release the underlying client
func (gs *GCSStorage) Close() error {
	return gs.client.Close()
}
