package conversation

import (
	"context"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// State conversation state of one user
type State string

// conversation states
const (
	StateIdle                State = "idle"
	StateAwaitingRoleChoice  State = "awaiting_role_choice"
	StateAwaitingLessonMedia State = "awaiting_lesson_media"
	StateAwaitingReportText  State = "awaiting_report_text"
	StateAwaitingReportPhoto State = "awaiting_report_photo"
)

// Session transient per-user conversation state, never written to the snapshot store
type Session struct {
	UserID              string              `json:"user_id"`
	State               State               `json:"state"`
	UploadingLesson     int                 `json:"uploading_lesson,omitempty"`
	Draft               *domain.ReportDraft `json:"draft,omitempty"`
	LastRetrievedLesson int                 `json:"last_retrieved_lesson,omitempty"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// NewSession fresh idle session
func NewSession(userID string) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// ToIdle return to Idle and drop the fields of the flow in progress
func (s *Session) ToIdle() {
	s.State = StateIdle
	s.UploadingLesson = 0
	s.Draft = nil
}

// Blank an idle session that remembers nothing
func (s *Session) Blank() bool {
	return s.State == StateIdle && s.UploadingLesson == 0 && s.Draft == nil && s.LastRetrievedLesson == 0
}

// SessionStore keeps sessions between actions
type SessionStore interface {
	// Get returns a fresh idle session when none is stored
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID string) error
}

// SessionPurger a SessionStore able to drop every session at once
type SessionPurger interface {
	Purge(ctx context.Context) error
}
