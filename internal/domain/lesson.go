package domain

import (
	"context"
	"fmt"
	"time"
)

// MediaKind kind of lesson payload
type MediaKind string

// supported media kinds
const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Valid reports whether k is a supported kind
func (k MediaKind) Valid() bool {
	return k == MediaPhoto || k == MediaVideo
}

// Ext file extension used when storing media of this kind
func (k MediaKind) Ext() string {
	if k == MediaVideo {
		return "mp4"
	}
	return "jpg"
}

type LessonModel struct {
	Number     int       `json:"number"`
	MediaPath  string    `json:"media_path,omitempty"`
	MediaKind  MediaKind `json:"media_kind,omitempty"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
}

// Ready a lesson is ready once media is attached
func (l *LessonModel) Ready() bool {
	return l != nil && l.MediaPath != ""
}

// LessonMediaKey storage key of the lesson payload
func LessonMediaKey(number int, kind MediaKind) string {
	return fmt.Sprintf("lessons/%d/lesson.%s", number, kind.Ext())
}

// LessonSummary lesson listing entry
type LessonSummary struct {
	Lesson      LessonModel `json:"lesson"`
	ReportCount int         `json:"report_count"`
}

// LearnerStatus where a learner stands in the sequence
type LearnerStatus struct {
	CurrentLesson int  `json:"current_lesson"`
	Ready         bool `json:"ready"`
}

type LessonUseCase interface {
	CreateLesson(ctx context.Context, requesterID string) (int, error)
	AttachMedia(ctx context.Context, number int, kind MediaKind, data []byte, uploaderID string) (*LessonModel, int, error)
	FetchLesson(ctx context.Context, number int) (*LessonModel, error)
	Retrieve(ctx context.Context, learnerID string) (*LessonModel, error)
	ListLessons(ctx context.Context, requesterID string) ([]*LessonSummary, error)
	Status(ctx context.Context, learnerID string) (*LearnerStatus, error)
	NotifySupervisors(ctx context.Context, learnerID string) (int, error)
	RemindLearners(ctx context.Context, supervisorID string) (int, error)
}
