package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"go.uber.org/zap"
)

func (m *Machine) start(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	switch req.role {
	case domain.RoleSupervisor:
		return reply(textSupervisorHome), nil
	case domain.RoleLearner:
		return m.checkStatus(ctx, req)
	}
	req.session.State = StateAwaitingRoleChoice
	return []*domain.OutboundMessage{{Text: textWelcome, Controls: roleControls()}}, nil
}

func (m *Machine) pickRole(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	role := domain.Role(strings.TrimPrefix(strings.TrimSpace(req.action.Data), domain.ControlRolePrefix))
	user, err := m.Users.AssignRole(ctx, req.action.UserID, role, req.action.DisplayName)
	if err != nil {
		return nil, err
	}
	req.session.ToIdle()
	req.role = user.Role

	if user.Role == domain.RoleSupervisor {
		return reply("✅ You are registered as a supervisor."), nil
	}
	return reply(fmt.Sprintf("✅ You are registered as a learner.\n📚 Your current lesson: #%d", user.Cursor())), nil
}

func (m *Machine) newLesson(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	number, err := m.Lessons.CreateLesson(ctx, req.action.UserID)
	if err != nil {
		return nil, err
	}
	req.session.State = StateAwaitingLessonMedia
	req.session.UploadingLesson = number
	return []*domain.OutboundMessage{{
		Text:     fmt.Sprintf("📤 Send a photo or video for lesson #%d.", number),
		Controls: cancelControls(),
	}}, nil
}

func (m *Machine) attachMedia(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	kind := domain.MediaPhoto
	if req.action.Kind == domain.ActionVideo {
		kind = domain.MediaVideo
	}
	lesson, notified, err := m.Lessons.AttachMedia(ctx, req.session.UploadingLesson, kind, req.action.Media, req.action.UserID)
	if err != nil {
		return nil, err
	}
	req.session.ToIdle()
	return reply(fmt.Sprintf("✅ Lesson #%d uploaded! Learners notified: %d", lesson.Number, notified)), nil
}

func (m *Machine) listLessons(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	list, err := m.Lessons.ListLessons(ctx, req.action.UserID)
	if err != nil {
		return nil, err
	}
	return []*domain.OutboundMessage{lessonListReply(list)}, nil
}

func (m *Machine) remind(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	sent, err := m.Lessons.RemindLearners(ctx, req.action.UserID)
	if err != nil {
		return nil, err
	}
	return reply(fmt.Sprintf("🔔 Reminder sent to %d learner(s).", sent)), nil
}

func (m *Machine) review(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	token, err := domain.ParseReviewToken(strings.TrimSpace(req.action.Data))
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("malformed review token", zap.Error(err))
		return nil, domain.ErrReportNotFound
	}
	report, err := m.Reports.Review(ctx, req.action.UserID, token)
	if err != nil {
		return nil, err
	}
	verdict := "✅ approved"
	if report.Status == domain.ReportRejected {
		verdict = "❌ rejected"
	}
	name := report.LearnerName
	if name == "" {
		name = report.LearnerID
	}
	return reply(fmt.Sprintf("Report for lesson #%d from %s\nStatus: %s", report.LessonNumber, name, verdict)), nil
}

func (m *Machine) getLesson(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	lesson, err := m.Lessons.Retrieve(ctx, req.action.UserID)
	if err != nil {
		return nil, err
	}
	req.session.LastRetrievedLesson = lesson.Number
	return []*domain.OutboundMessage{{
		Text:     fmt.Sprintf("🎬 Lesson #%d", lesson.Number),
		Media:    &domain.MediaAttachment{Kind: lesson.MediaKind, Path: lesson.MediaPath},
		Controls: []domain.Control{{Label: domain.MenuSubmitReport, Data: domain.ControlSubmitReport}},
	}}, nil
}

func (m *Machine) beginReport(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	number, err := m.Reports.BeginSubmission(ctx, req.action.UserID, req.session.LastRetrievedLesson)
	if err != nil {
		return nil, err
	}
	req.session.State = StateAwaitingReportText
	req.session.Draft = &domain.ReportDraft{LessonNumber: number}
	return []*domain.OutboundMessage{{
		Text:     fmt.Sprintf("✍️ Describe how lesson #%d went.", number),
		Controls: cancelControls(),
	}}, nil
}

func (m *Machine) captureText(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	draft := req.session.Draft
	if draft == nil {
		return nil, domain.ErrNoActiveLesson
	}
	if err := m.Reports.CaptureText(ctx, draft, draft.LessonNumber, req.action.Text); err != nil {
		return nil, err
	}
	req.session.State = StateAwaitingReportPhoto
	return []*domain.OutboundMessage{{Text: textSendReportPhoto, Controls: cancelControls()}}, nil
}

func (m *Machine) submitReport(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	report, _, err := m.Reports.Submit(ctx, req.action.UserID, req.session.Draft, req.action.Media)
	if err != nil {
		return nil, err
	}
	req.session.ToIdle()
	return reply(fmt.Sprintf("✅ Report for lesson #%d was sent for review!", report.LessonNumber)), nil
}

func (m *Machine) notifySupervisors(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	reached, err := m.Lessons.NotifySupervisors(ctx, req.action.UserID)
	if err != nil {
		return nil, err
	}
	if reached == 0 {
		return reply(textNoSupervisor), nil
	}
	return reply(textSupervisorNotified), nil
}

func (m *Machine) checkStatus(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	status, err := m.Lessons.Status(ctx, req.action.UserID)
	if err != nil {
		return nil, err
	}
	return []*domain.OutboundMessage{statusReply(req.action.DisplayName, status)}, nil
}

func (m *Machine) cancel(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	req.session.ToIdle()
	return reply(textCancelled), nil
}

func (m *Machine) nothingToCancel(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	return reply(textNothingToCancel), nil
}

// reset wipe the store and media when the secret matches, the requester starts over
func (m *Machine) reset(ctx context.Context, req *request) ([]*domain.OutboundMessage, error) {
	if m.Guard == nil || !m.Guard.Enabled() {
		return reply(textResetDisabled), nil
	}
	_, secret := splitCommand(strings.TrimSpace(req.action.Text))
	ok, err := m.Guard.Verify(secret)
	if err != nil {
		return nil, fmt.Errorf("verify reset secret: %w", err)
	}
	if !ok {
		logging.ExtractLoggerFromContext(ctx).Warn("reset rejected")
		return nil, domain.ErrUnauthorized
	}
	if err := m.Store.Reset(ctx); err != nil {
		return nil, err
	}
	logger := logging.ExtractLoggerFromContext(ctx)
	logger.Warn("all data wiped")
	if purger, ok := m.Sessions.(SessionPurger); ok {
		if err := purger.Purge(ctx); err != nil {
			logger.Warn("failed to purge sessions", zap.Error(err))
		}
	}

	*req.session = *NewSession(req.action.UserID)
	req.role = domain.RoleNone
	return reply(textResetDone), nil
}
