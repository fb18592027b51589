package lesson

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// LessonUseCaseImpl ...
type LessonUseCaseImpl struct {
	Store    domain.Store
	Media    domain.MediaStorage
	Notifier domain.Notifier
}

var _ domain.LessonUseCase = &LessonUseCaseImpl{}

// NewLessonUseCase ...
func NewLessonUseCase(
	Store domain.Store,
	Media domain.MediaStorage,
	Notifier domain.Notifier,
) *LessonUseCaseImpl {
	return &LessonUseCaseImpl{Store, Media, Notifier}
}

// CreateLesson allocate the next lesson number and persist an empty slot for it
func (lu *LessonUseCaseImpl) CreateLesson(ctx context.Context, requesterID string) (int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.CreateLesson", "service")
	defer apmSpan.End()

	var number int
	err := lu.Store.Update(ctx, func(snap *domain.Snapshot) error {
		if snap.RoleOf(requesterID) != domain.RoleSupervisor {
			return domain.ErrUnauthorized
		}
		number = snap.LessonCounter
		snap.Lessons[number] = &domain.LessonModel{Number: number}
		snap.LessonCounter++
		return nil
	})
	if err != nil {
		return 0, err
	}
	logging.ExtractLoggerFromContext(ctx).Info("lesson slot created", zap.Int("lesson.number", number), zap.String("user.id", requesterID))
	return number, nil
}

// AttachMedia store the lesson payload and mark the slot ready, then tell every learner
// waiting on this lesson. Media of a ready lesson is never replaced.
// Returns the lesson and the number of learners notified.
func (lu *LessonUseCaseImpl) AttachMedia(ctx context.Context, number int, kind domain.MediaKind, data []byte, uploaderID string) (*domain.LessonModel, int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.AttachMedia", "service")
	defer apmSpan.End()

	if !kind.Valid() || len(data) == 0 {
		return nil, 0, domain.ErrInvalidMedia
	}

	var (
		lesson  domain.LessonModel
		waiting []string
	)
	// media is written while the transaction holds the store, a slot gets at most one upload
	err := lu.Store.Update(ctx, func(snap *domain.Snapshot) error {
		if snap.RoleOf(uploaderID) != domain.RoleSupervisor {
			return domain.ErrUnauthorized
		}
		slot, ok := snap.Lessons[number]
		if !ok {
			return domain.ErrLessonNotFound
		}
		if slot.Ready() {
			return domain.ErrLessonAlreadyReady
		}

		path, err := lu.Media.Store(ctx, domain.LessonMediaKey(number, kind), data)
		if err != nil {
			return fmt.Errorf("%w: store lesson media: %w", domain.ErrIO, err)
		}
		slot.MediaPath = path
		slot.MediaKind = kind
		slot.UploadedBy = uploaderID
		slot.UploadedAt = time.Now().UTC()
		slot.SizeBytes = int64(len(data))

		lesson = *slot
		waiting = snap.LearnersAt(number)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	logging.ExtractLoggerFromContext(ctx).Info("lesson media attached",
		zap.Int("lesson.number", number),
		zap.String("lesson.kind", string(kind)),
		zap.Int64("lesson.size", lesson.SizeBytes),
	)
	notified := lu.Notifier.Notify(ctx, waiting, &domain.OutboundMessage{
		Text: fmt.Sprintf("📚 Lesson #%d is ready! Press %q to get it.", number, domain.MenuGetLesson),
		Menu: domain.MenuFor(domain.RoleLearner),
	})
	return &lesson, notified, nil
}

// FetchLesson read-only lookup of a ready lesson
func (lu *LessonUseCaseImpl) FetchLesson(ctx context.Context, number int) (*domain.LessonModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.FetchLesson", "service")
	defer apmSpan.End()

	var lesson domain.LessonModel
	err := lu.Store.View(ctx, func(snap *domain.Snapshot) error {
		found := snap.Lessons[number]
		if !found.Ready() {
			return &domain.LessonNotReadyError{Number: number}
		}
		lesson = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Retrieve hand the learner the lesson under their cursor and advance the cursor by one.
// Nothing changes when that lesson is not ready.
func (lu *LessonUseCaseImpl) Retrieve(ctx context.Context, learnerID string) (*domain.LessonModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.Retrieve", "service")
	defer apmSpan.End()

	var lesson domain.LessonModel
	err := lu.Store.Update(ctx, func(snap *domain.Snapshot) error {
		user, ok := snap.Users[learnerID]
		if !ok || user.Role != domain.RoleLearner {
			return domain.ErrUnauthorized
		}
		cursor := user.Cursor()
		found := snap.Lessons[cursor]
		if !found.Ready() {
			return &domain.LessonNotReadyError{Number: cursor}
		}
		user.CurrentLesson = cursor + 1
		lesson = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.ExtractLoggerFromContext(ctx).Info("lesson retrieved",
		zap.Int("lesson.number", lesson.Number), zap.String("user.id", learnerID))
	return &lesson, nil
}

// ListLessons every lesson slot by ascending number with its report count
func (lu *LessonUseCaseImpl) ListLessons(ctx context.Context, requesterID string) ([]*domain.LessonSummary, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.ListLessons", "service")
	defer apmSpan.End()

	var result []*domain.LessonSummary
	err := lu.Store.View(ctx, func(snap *domain.Snapshot) error {
		if snap.RoleOf(requesterID) != domain.RoleSupervisor {
			return domain.ErrUnauthorized
		}
		numbers := make([]int, 0, len(snap.Lessons))
		for n := range snap.Lessons {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		for _, n := range numbers {
			result = append(result, &domain.LessonSummary{
				Lesson:      *snap.Lessons[n],
				ReportCount: len(snap.Reports[n]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Status the learner's current lesson and whether it can be retrieved
func (lu *LessonUseCaseImpl) Status(ctx context.Context, learnerID string) (*domain.LearnerStatus, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.Status", "service")
	defer apmSpan.End()

	status := new(domain.LearnerStatus)
	err := lu.Store.View(ctx, func(snap *domain.Snapshot) error {
		user, ok := snap.Users[learnerID]
		if !ok || user.Role != domain.RoleLearner {
			return domain.ErrUnauthorized
		}
		status.CurrentLesson = user.Cursor()
		status.Ready = snap.Lessons[status.CurrentLesson].Ready()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// NotifySupervisors tell every supervisor the learner is waiting for their current lesson.
// Returns the number of supervisors reached.
func (lu *LessonUseCaseImpl) NotifySupervisors(ctx context.Context, learnerID string) (int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.NotifySupervisors", "service")
	defer apmSpan.End()

	var (
		name        string
		cursor      int
		ready       bool
		supervisors []string
	)
	err := lu.Store.View(ctx, func(snap *domain.Snapshot) error {
		user, ok := snap.Users[learnerID]
		if !ok || user.Role != domain.RoleLearner {
			return domain.ErrUnauthorized
		}
		name = user.DisplayName
		cursor = user.Cursor()
		ready = snap.Lessons[cursor].Ready()
		supervisors = snap.UserIDsByRole(domain.RoleSupervisor)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if name == "" {
		name = "A learner"
	}
	state := "not uploaded yet"
	if ready {
		state = "already uploaded"
	}
	return lu.Notifier.Notify(ctx, supervisors, &domain.OutboundMessage{
		Text: fmt.Sprintf("👶 %s is waiting for lesson #%d\nStatus: %s\n\nPlease upload it as soon as possible!", name, cursor, state),
		Menu: domain.MenuFor(domain.RoleSupervisor),
	}), nil
}

// RemindLearners send every learner a reminder naming their own current lesson.
// Returns the number of learners reached.
func (lu *LessonUseCaseImpl) RemindLearners(ctx context.Context, supervisorID string) (int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "LessonUseCaseImpl.RemindLearners", "service")
	defer apmSpan.End()

	byLesson := make(map[int][]string)
	err := lu.Store.View(ctx, func(snap *domain.Snapshot) error {
		if snap.RoleOf(supervisorID) != domain.RoleSupervisor {
			return domain.ErrUnauthorized
		}
		for _, id := range snap.UserIDsByRole(domain.RoleLearner) {
			cursor := snap.Users[id].Cursor()
			byLesson[cursor] = append(byLesson[cursor], id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(byLesson) == 0 {
		return 0, domain.ErrNoLearners
	}

	lessons := make([]int, 0, len(byLesson))
	for n := range byLesson {
		lessons = append(lessons, n)
	}
	sort.Ints(lessons)

	sent := 0
	for _, n := range lessons {
		sent += lu.Notifier.Notify(ctx, byLesson[n], &domain.OutboundMessage{
			Text: fmt.Sprintf("🔔 Reminder from your supervisor!\nDon't forget to complete lesson #%d", n),
			Menu: domain.MenuFor(domain.RoleLearner),
		})
	}
	return sent, nil
}
