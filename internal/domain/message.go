package domain

import "context"

// Control selectable affordance attached to a message
type Control struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// MediaAttachment stored media delivered along with a message
type MediaAttachment struct {
	Kind MediaKind `json:"kind"`
	Path string    `json:"path"`
}

// OutboundMessage content delivered to one user
type OutboundMessage struct {
	Text     string           `json:"text"`
	Media    *MediaAttachment `json:"media,omitempty"`
	Controls []Control        `json:"controls,omitempty"`
	Menu     []string         `json:"menu,omitempty"` // persistent keyboard labels
}

// control data understood by the conversation machine
const (
	ControlCancel           = "cancel"
	ControlNotifySupervisor = "notify_supervisor"
	ControlCheckStatus      = "check_status"
	ControlSubmitReport     = "submit_report"
	ControlRolePrefix       = "role:"
)

// Messenger outbound side of the messaging transport
type Messenger interface {
	Send(ctx context.Context, userID string, msg *OutboundMessage) error
}

// Notifier fans a message out to many users
type Notifier interface {
	// Notify returns the number of targets the message reached
	Notify(ctx context.Context, targets []string, msg *OutboundMessage) int
}

// MediaStorage stores lesson and report payloads under slash separated keys
type MediaStorage interface {
	Store(ctx context.Context, key string, data []byte) (path string, err error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	// Purge removes every stored object
	Purge(ctx context.Context) error
	Ping(ctx context.Context) error
}

// main menu labels
const (
	MenuNewLesson    = "📝 New lesson"
	MenuListLessons  = "📋 List lessons"
	MenuRemind       = "🔔 Remind"
	MenuGetLesson    = "🎬 Get lesson"
	MenuSubmitReport = "📄 Submit report"
)

// MenuFor main menu of the role, nil for users without a role
func MenuFor(role Role) []string {
	switch role {
	case RoleSupervisor:
		return []string{MenuNewLesson, MenuListLessons, MenuRemind}
	case RoleLearner:
		return []string{MenuGetLesson, MenuSubmitReport}
	}
	return nil
}
