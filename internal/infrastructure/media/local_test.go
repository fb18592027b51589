package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_StoreRead(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	ls, err := NewLocalStorage(root)
	require.NoError(t, err)

	p, err := ls.Store(ctx, "lessons/1/lesson.mp4", []byte("video"))
	require.NoError(t, err)
	assert.Equal(t, "lessons/1/lesson.mp4", p)
	assert.FileExists(t, filepath.Join(root, "lessons", "1", "lesson.mp4"))

	data, err := ls.Read(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []byte("video"), data)

	_, err = ls.Store(ctx, p, []byte("replaced"))
	require.NoError(t, err)
	data, err = ls.Read(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), data)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside", "lessons/../../x", "a\\b"} {
		_, err := ls.Store(ctx, key, []byte("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidMediaKey, key)
		_, err = ls.Read(ctx, key)
		assert.ErrorIs(t, err, domain.ErrInvalidMediaKey, key)
	}
}

func TestLocalStorage_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	ls, err := NewLocalStorage(root)
	require.NoError(t, err)

	_, err = ls.Store(ctx, "reports/1/u1_1.jpg", []byte("a"))
	require.NoError(t, err)
	_, err = ls.Store(ctx, "reports/1/u1_2.jpg", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, ls.Delete(ctx, "reports/1/u1_1.jpg"))
	require.NoError(t, ls.Delete(ctx, "reports/1/u1_1.jpg"))
	_, err = ls.Read(ctx, "reports/1/u1_1.jpg")
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)

	require.NoError(t, ls.Purge(ctx))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, ls.Ping(ctx))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentType("lessons/1/lesson.mp4"))
	assert.Equal(t, "image/jpeg", ContentType("reports/1/u_1.JPG"))
	assert.Equal(t, "application/octet-stream", ContentType("x.bin"))
}
