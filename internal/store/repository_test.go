package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(snap *domain.Snapshot) {
	snap.Users["s1"] = &domain.UserModel{ID: "s1", Role: domain.RoleSupervisor, DisplayName: "Ann", CurrentLesson: 1}
	snap.Users["l1"] = &domain.UserModel{ID: "l1", Role: domain.RoleLearner, DisplayName: "Bob", CurrentLesson: 2}
	snap.Lessons[1] = &domain.LessonModel{
		Number:     1,
		MediaPath:  "lessons/1/lesson.jpg",
		MediaKind:  domain.MediaPhoto,
		UploadedBy: "s1",
		UploadedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		SizeBytes:  3,
	}
	snap.Lessons[2] = &domain.LessonModel{Number: 2}
	snap.Reports[1] = []*domain.ReportModel{{
		ID:           "r1",
		LessonNumber: 1,
		LearnerID:    "l1",
		LearnerName:  "Bob",
		Text:         "done",
		PhotoPath:    "reports/1/l1_1.jpg",
		SubmittedAt:  time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		Status:       domain.ReportPending,
	}}
	snap.LessonCounter = 3
}

func TestFileBackend_RoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	backend := NewFileBackend(path)

	snap, err := backend.Load(ctx)
	require.NoError(t, err)
	seed(snap)
	require.NoError(t, backend.Save(ctx, snap))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, backend.Save(ctx, loaded))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, snap, loaded)
}

func TestFileBackend_InitializesFreshDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	backend := NewFileBackend(path)

	snap, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.LessonCounter)
	assert.Empty(t, snap.Users)
	assert.FileExists(t, path)
}

func TestFileBackend_MalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileBackend(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRepository_CounterSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")

	repo := NewRepository(NewFileBackend(path), media.NewMemoryStorage())
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Update(ctx, func(snap *domain.Snapshot) error {
			snap.Lessons[snap.LessonCounter] = &domain.LessonModel{Number: snap.LessonCounter}
			snap.LessonCounter++
			return nil
		}))
	}

	restarted := NewRepository(NewFileBackend(path), media.NewMemoryStorage())
	require.NoError(t, restarted.View(ctx, func(snap *domain.Snapshot) error {
		assert.Equal(t, 4, snap.LessonCounter)
		assert.Len(t, snap.Lessons, 3)
		return nil
	}))
}

func TestRepository_UpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryBackend(), media.NewMemoryStorage())
	boom := errors.New("boom")

	err := repo.Update(ctx, func(snap *domain.Snapshot) error {
		snap.LessonCounter = 42
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, repo.View(ctx, func(snap *domain.Snapshot) error {
		assert.Equal(t, 1, snap.LessonCounter)
		return nil
	}))
}

func TestRepository_ViewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryBackend(), media.NewMemoryStorage())

	require.NoError(t, repo.View(ctx, func(snap *domain.Snapshot) error {
		snap.LessonCounter = 9
		return nil
	}))
	require.NoError(t, repo.View(ctx, func(snap *domain.Snapshot) error {
		assert.Equal(t, 1, snap.LessonCounter)
		return nil
	}))
}

type failingBackend struct {
	*MemoryBackend
}

func (fb failingBackend) Save(ctx context.Context, snap *domain.Snapshot) error {
	return errors.New("disk full")
}

func TestRepository_SaveFailureIsIOError(t *testing.T) {
	repo := NewRepository(failingBackend{NewMemoryBackend()}, media.NewMemoryStorage())
	err := repo.Update(context.Background(), func(snap *domain.Snapshot) error {
		snap.LessonCounter++
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRepository_Reset(t *testing.T) {
	ctx := context.Background()
	storage := media.NewMemoryStorage()
	repo := NewRepository(NewMemoryBackend(), storage)

	_, err := storage.Store(ctx, "lessons/1/lesson.jpg", []byte("img"))
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, func(snap *domain.Snapshot) error {
		seed(snap)
		return nil
	}))

	require.NoError(t, repo.Reset(ctx))
	assert.Equal(t, 0, storage.Len())
	require.NoError(t, repo.View(ctx, func(snap *domain.Snapshot) error {
		assert.Equal(t, domain.NewSnapshot(), snap)
		return nil
	}))
}
