package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"github.com/pot-code/lessonrelay/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// ReportUseCaseImpl ...
type ReportUseCaseImpl struct {
	Store       domain.Store
	Media       domain.MediaStorage
	Notifier    domain.Notifier
	IDGenerator uuid.Generator
}

var _ domain.ReportUseCase = &ReportUseCaseImpl{}

// NewReportUseCase ...
func NewReportUseCase(
	Store domain.Store,
	Media domain.MediaStorage,
	Notifier domain.Notifier,
	IDGenerator uuid.Generator,
) *ReportUseCaseImpl {
	return &ReportUseCaseImpl{Store, Media, Notifier, IDGenerator}
}

// BeginSubmission pick the lesson a new report refers to, the last retrieved one if the learner
// could have retrieved it, otherwise the one just behind the learner's cursor
func (ru *ReportUseCaseImpl) BeginSubmission(ctx context.Context, learnerID string, lastRetrieved int) (int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ReportUseCaseImpl.BeginSubmission", "service")
	defer apmSpan.End()

	var number int
	err := ru.Store.View(ctx, func(snap *domain.Snapshot) error {
		user, ok := snap.Users[learnerID]
		if !ok || user.Role != domain.RoleLearner {
			return domain.ErrUnauthorized
		}
		if retrieved(snap, user, lastRetrieved) {
			number = lastRetrieved
			return nil
		}
		if n := user.Cursor() - 1; retrieved(snap, user, n) {
			number = n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if number < 1 {
		return 0, domain.ErrNoActiveLesson
	}
	return number, nil
}

// retrieved whether the learner's cursor has passed lesson n and the lesson is uploaded
func retrieved(snap *domain.Snapshot, user *domain.UserModel, n int) bool {
	if n < 1 || n >= user.Cursor() {
		return false
	}
	lesson, ok := snap.Lessons[n]
	return ok && lesson.Ready()
}

// CaptureText record the report text on the draft
func (ru *ReportUseCaseImpl) CaptureText(ctx context.Context, draft *domain.ReportDraft, lessonNumber int, text string) error {
	if draft == nil || lessonNumber < 1 {
		return domain.ErrNoActiveLesson
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyReport
	}
	draft.LessonNumber = lessonNumber
	draft.Text = text
	return nil
}

// Submit persist the drafted report with its photo and hand it to every supervisor for review.
// Returns the report and the number of supervisors reached.
func (ru *ReportUseCaseImpl) Submit(ctx context.Context, learnerID string, draft *domain.ReportDraft, photo []byte) (*domain.ReportModel, int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ReportUseCaseImpl.Submit", "service")
	defer apmSpan.End()

	if draft == nil || draft.LessonNumber < 1 {
		return nil, 0, domain.ErrNoActiveLesson
	}
	if draft.Text == "" {
		return nil, 0, domain.ErrEmptyReport
	}
	if len(photo) == 0 {
		return nil, 0, domain.ErrInvalidMedia
	}

	id, err := ru.IDGenerator.Generate()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to generate report id: %w", err)
	}

	var (
		report      domain.ReportModel
		ordinal     int
		supervisors []string
	)
	err = ru.Store.Update(ctx, func(snap *domain.Snapshot) error {
		user, ok := snap.Users[learnerID]
		if !ok || user.Role != domain.RoleLearner {
			return domain.ErrUnauthorized
		}
		n := draft.LessonNumber
		if !retrieved(snap, user, n) {
			return domain.ErrNoActiveLesson
		}
		ordinal = len(snap.Reports[n])

		path, err := ru.Media.Store(ctx, domain.ReportPhotoKey(n, learnerID, ordinal+1), photo)
		if err != nil {
			return fmt.Errorf("%w: store report photo: %w", domain.ErrIO, err)
		}
		created := &domain.ReportModel{
			ID:           id,
			LessonNumber: n,
			LearnerID:    learnerID,
			LearnerName:  user.DisplayName,
			Text:         draft.Text,
			PhotoPath:    path,
			SubmittedAt:  time.Now().UTC(),
			Status:       domain.ReportPending,
		}
		snap.Reports[n] = append(snap.Reports[n], created)

		report = *created
		supervisors = snap.UserIDsByRole(domain.RoleSupervisor)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	logging.ExtractLoggerFromContext(ctx).Info("report submitted",
		zap.String("report.id", report.ID),
		zap.Int("lesson.number", report.LessonNumber),
		zap.Int("report.ordinal", ordinal),
		zap.String("user.id", learnerID),
	)
	notified := ru.Notifier.Notify(ctx, supervisors, reviewRequest(&report, ordinal))
	return &report, notified, nil
}

func reviewRequest(report *domain.ReportModel, ordinal int) *domain.OutboundMessage {
	name := report.LearnerName
	if name == "" {
		name = report.LearnerID
	}
	token := domain.ReviewToken{
		LessonNumber: report.LessonNumber,
		LearnerID:    report.LearnerID,
		Ordinal:      ordinal,
	}
	approve, reject := token, token
	approve.Decision = domain.DecisionApprove
	reject.Decision = domain.DecisionReject

	return &domain.OutboundMessage{
		Text: fmt.Sprintf("📝 Report received for lesson #%d!\n👤 From: %s\n📄 Comment: %s",
			report.LessonNumber, name, report.Text),
		Media: &domain.MediaAttachment{Kind: domain.MediaPhoto, Path: report.PhotoPath},
		Controls: []domain.Control{
			{Label: "✅ Approve", Data: approve.Encode()},
			{Label: "❌ Reject", Data: reject.Encode()},
		},
		Menu: domain.MenuFor(domain.RoleSupervisor),
	}
}

// Review apply the supervisor's decision to the report the token points at and tell the learner.
// A token that does not resolve changes nothing.
func (ru *ReportUseCaseImpl) Review(ctx context.Context, reviewerID string, token domain.ReviewToken) (*domain.ReportModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ReportUseCaseImpl.Review", "service")
	defer apmSpan.End()

	var report domain.ReportModel
	err := ru.Store.Update(ctx, func(snap *domain.Snapshot) error {
		if snap.RoleOf(reviewerID) != domain.RoleSupervisor {
			return domain.ErrUnauthorized
		}
		list := snap.Reports[token.LessonNumber]
		if token.Ordinal < 0 || token.Ordinal >= len(list) {
			return domain.ErrReportNotFound
		}
		found := list[token.Ordinal]
		if found.LearnerID != token.LearnerID {
			return domain.ErrReportNotFound
		}
		found.Status = token.Decision.Status()
		report = *found
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.ExtractLoggerFromContext(ctx).Info("report reviewed",
		zap.String("report.id", report.ID),
		zap.String("report.status", string(report.Status)),
		zap.String("user.id", reviewerID),
	)
	ru.Notifier.Notify(ctx, []string{report.LearnerID}, reviewVerdict(&report))
	return &report, nil
}

func reviewVerdict(report *domain.ReportModel) *domain.OutboundMessage {
	msg := &domain.OutboundMessage{Menu: domain.MenuFor(domain.RoleLearner)}
	if report.Status == domain.ReportApproved {
		msg.Text = fmt.Sprintf("🎉 Your report for lesson #%d was approved!", report.LessonNumber)
	} else {
		msg.Text = fmt.Sprintf("😢 Your report for lesson #%d was rejected.\nPlease redo the task and submit the report again.", report.LessonNumber)
	}
	return msg
}
