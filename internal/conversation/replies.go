package conversation

import (
	"fmt"
	"strings"

	"github.com/pot-code/lessonrelay/internal/domain"
)

const (
	textWelcome            = "👋 Welcome! Who are you?"
	textPickRole           = "Please pick a role using the buttons below."
	textInvalidRole        = "Unknown role, please pick one of the buttons below."
	textSupervisorHome     = "👩 Welcome back! Use the menu below."
	textUseMenu            = "Please use the menu below."
	textSendStart          = "👋 Send /start to begin."
	textUnauthorized       = "⛔ This action is not available for your role."
	textNoActiveLesson     = "❌ You have not received a lesson to report on yet."
	textReportNotFound     = "❌ Report not found."
	textLessonNotFound     = "❌ This lesson slot does not exist anymore, create a new lesson."
	textLessonAlreadyReady = "❌ This lesson is already uploaded."
	textNoLearners         = "📭 No learners are registered yet."
	textEmptyReport        = "✍️ The report text cannot be empty, please describe the result."
	textInvalidMedia       = "❌ Unsupported or empty media, please try again."
	textRetry              = "⚠️ Something went wrong, please retry or contact your supervisor."
	textCancelled          = "❌ Action cancelled."
	textNothingToCancel    = "Nothing to cancel."
	textResetDisabled      = "Reset is disabled."
	textResetDone          = "🧹 All data was wiped. Send /start to begin again."
	textSendReportPhoto    = "📸 Now send a photo of your work."
	textSupervisorNotified = "✅ Your supervisor was notified!"
	textNoSupervisor       = "⚠️ No supervisor could be reached right now, try again later."
	textNoLessons          = "📭 No lessons yet."
)

func reply(text string) []*domain.OutboundMessage {
	return []*domain.OutboundMessage{{Text: text}}
}

func roleControls() []domain.Control {
	return []domain.Control{
		{Label: "👩 Supervisor", Data: domain.ControlRolePrefix + string(domain.RoleSupervisor)},
		{Label: "👦 Learner", Data: domain.ControlRolePrefix + string(domain.RoleLearner)},
	}
}

func cancelControls() []domain.Control {
	return []domain.Control{{Label: "❌ Cancel", Data: domain.ControlCancel}}
}

func notReadyReply(number int) *domain.OutboundMessage {
	return &domain.OutboundMessage{
		Text: fmt.Sprintf("⏳ Lesson #%d is not uploaded yet.", number),
		Controls: []domain.Control{
			{Label: "📢 Notify supervisor", Data: domain.ControlNotifySupervisor},
			{Label: "🔄 Check again", Data: domain.ControlCheckStatus},
		},
	}
}

func statusReply(name string, status *domain.LearnerStatus) *domain.OutboundMessage {
	greeting := "👋 Hi!"
	if name != "" {
		greeting = fmt.Sprintf("👋 Hi, %s!", name)
	}
	if status.Ready {
		return &domain.OutboundMessage{
			Text: fmt.Sprintf("%s\n📚 Your current lesson: #%d\nStatus: ✅ ready, press %q to get it.", greeting, status.CurrentLesson, domain.MenuGetLesson),
		}
	}
	msg := notReadyReply(status.CurrentLesson)
	msg.Text = fmt.Sprintf("%s\n📚 Your current lesson: #%d\nStatus: ⏳ not uploaded yet.", greeting, status.CurrentLesson)
	return msg
}

func lessonListReply(list []*domain.LessonSummary) *domain.OutboundMessage {
	if len(list) == 0 {
		return &domain.OutboundMessage{Text: textNoLessons}
	}
	var sb strings.Builder
	sb.WriteString("📚 Lessons:")
	for _, entry := range list {
		lesson := entry.Lesson
		if lesson.Ready() {
			fmt.Fprintf(&sb, "\n#%d ✅ %s, reports: %d", lesson.Number, lesson.MediaKind, entry.ReportCount)
		} else {
			fmt.Fprintf(&sb, "\n#%d ⏳ waiting for media, reports: %d", lesson.Number, entry.ReportCount)
		}
	}
	return &domain.OutboundMessage{Text: sb.String()}
}

// reprompt reply for an input the current state does not accept
func reprompt(session *Session, role domain.Role) []*domain.OutboundMessage {
	switch session.State {
	case StateAwaitingRoleChoice:
		return []*domain.OutboundMessage{{Text: textPickRole, Controls: roleControls()}}
	case StateAwaitingLessonMedia:
		return []*domain.OutboundMessage{{
			Text:     fmt.Sprintf("📤 Please send a photo or video for lesson #%d, or cancel.", session.UploadingLesson),
			Controls: cancelControls(),
		}}
	case StateAwaitingReportText:
		return []*domain.OutboundMessage{{Text: "✍️ Please describe the result in text, or cancel.", Controls: cancelControls()}}
	case StateAwaitingReportPhoto:
		return []*domain.OutboundMessage{{Text: "📸 Please send a photo of your work, or cancel.", Controls: cancelControls()}}
	}
	if role == domain.RoleNone {
		return reply(textSendStart)
	}
	return reply(textUseMenu)
}
