package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
	"github.com/pot-code/lessonrelay/internal/infrastructure/uuid"
	"github.com/pot-code/lessonrelay/internal/lesson"
	"github.com/pot-code/lessonrelay/internal/notify"
	"github.com/pot-code/lessonrelay/internal/report"
	"github.com/pot-code/lessonrelay/internal/testkit"
	"github.com/pot-code/lessonrelay/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const resetSecret = "wipe-everything"

type fixture struct {
	ctx       context.Context
	store     domain.Store
	media     domain.MediaStorage
	messenger *testkit.Messenger
	sessions  SessionStore
	machine   *Machine
}

func newFixture(t *testing.T, resetHash string) *fixture {
	return newFixtureWithSessions(t, resetHash, NewMemorySessionStore(0))
}

func newFixtureWithSessions(t *testing.T, resetHash string, sessions SessionStore) *fixture {
	ctx := context.Background()
	s, storage := testkit.NewStore()
	messenger := testkit.NewMessenger()
	notifier := notify.NewFanOutNotifier(messenger, 4)
	return &fixture{
		ctx:       ctx,
		store:     s,
		media:     storage,
		messenger: messenger,
		sessions:  sessions,
		machine: NewMachine(
			user.NewUserUseCase(s),
			lesson.NewLessonUseCase(s, storage, notifier),
			report.NewReportUseCase(s, storage, notifier, uuid.NewNanoIDGenerator(12)),
			sessions,
			s,
			auth.NewSecretGuard(resetHash),
		),
	}
}

func hashSecret(t *testing.T) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(resetSecret), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func (f *fixture) do(t *testing.T, action *domain.Action) *domain.OutboundMessage {
	replies, err := f.machine.Handle(f.ctx, action)
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies[len(replies)-1]
}

func (f *fixture) text(t *testing.T, userID, text string) *domain.OutboundMessage {
	return f.do(t, &domain.Action{UserID: userID, DisplayName: "user " + userID, Kind: domain.ActionText, Text: text})
}

func (f *fixture) press(t *testing.T, userID, data string) *domain.OutboundMessage {
	return f.do(t, &domain.Action{UserID: userID, DisplayName: "user " + userID, Kind: domain.ActionControl, Data: data})
}

func (f *fixture) send(t *testing.T, userID string, kind domain.ActionKind, payload string) *domain.OutboundMessage {
	return f.do(t, &domain.Action{UserID: userID, Kind: kind, Media: []byte(payload)})
}

func (f *fixture) register(t *testing.T, userID string, role domain.Role) {
	f.text(t, userID, CommandStart)
	f.press(t, userID, domain.ControlRolePrefix+string(role))
}

func (f *fixture) state(t *testing.T, userID string) State {
	session, err := f.sessions.Get(f.ctx, userID)
	require.NoError(t, err)
	return session.State
}

func (f *fixture) snapshot(t *testing.T) *domain.Snapshot {
	var out *domain.Snapshot
	require.NoError(t, f.store.View(f.ctx, func(snap *domain.Snapshot) error {
		out = snap
		return nil
	}))
	return out
}

func TestMachine_TransitionTable(t *testing.T) {
	m := newFixture(t, "").machine

	for _, state := range []State{StateAwaitingRoleChoice, StateAwaitingLessonMedia, StateAwaitingReportText, StateAwaitingReportPhoto} {
		assert.True(t, m.Accepts(state, InputCancel), state)
		assert.False(t, m.Accepts(state, InputNewLesson), state)
		assert.False(t, m.Accepts(state, InputStart), state)
	}

	cases := []struct {
		state  State
		accept []Input
		reject []Input
	}{
		{StateIdle, []Input{InputStart, InputNewLesson, InputGetLesson, InputReview, InputCancel}, []Input{InputText, InputPhoto, InputPickRole}},
		{StateAwaitingRoleChoice, []Input{InputPickRole}, []Input{InputText, InputPhoto}},
		{StateAwaitingLessonMedia, []Input{InputPhoto, InputVideo}, []Input{InputText, InputReview}},
		{StateAwaitingReportText, []Input{InputText}, []Input{InputPhoto, InputVideo}},
		{StateAwaitingReportPhoto, []Input{InputPhoto}, []Input{InputText, InputVideo}},
	}
	for _, c := range cases {
		for _, in := range c.accept {
			assert.True(t, m.Accepts(c.state, in), "%s should accept %s", c.state, in)
		}
		for _, in := range c.reject {
			assert.False(t, m.Accepts(c.state, in), "%s should not accept %s", c.state, in)
		}
	}
}

func TestMachine_FullScenario(t *testing.T) {
	f := newFixture(t, "")

	welcome := f.text(t, "A", CommandStart)
	assert.Len(t, welcome.Controls, 2)
	assert.Equal(t, StateAwaitingRoleChoice, f.state(t, "A"))
	registered := f.press(t, "A", "role:supervisor")
	assert.Contains(t, registered.Text, "supervisor")
	assert.Equal(t, domain.MenuFor(domain.RoleSupervisor), registered.Menu)
	f.register(t, "B", domain.RoleLearner)

	prompt := f.text(t, "A", domain.MenuNewLesson)
	assert.Contains(t, prompt.Text, "lesson #1")
	assert.Equal(t, StateAwaitingLessonMedia, f.state(t, "A"))

	uploaded := f.send(t, "A", domain.ActionPhoto, "img")
	assert.Contains(t, uploaded.Text, "Learners notified: 1")
	assert.Equal(t, StateIdle, f.state(t, "A"))
	assert.Contains(t, f.messenger.Last("B").Text, "Lesson #1 is ready")

	got := f.text(t, "B", domain.MenuGetLesson)
	require.NotNil(t, got.Media)
	assert.Equal(t, "lessons/1/lesson.jpg", got.Media.Path)
	assert.Equal(t, 2, f.snapshot(t).Users["B"].CurrentLesson)

	f.text(t, "B", domain.MenuSubmitReport)
	assert.Equal(t, StateAwaitingReportText, f.state(t, "B"))
	f.text(t, "B", "done")
	assert.Equal(t, StateAwaitingReportPhoto, f.state(t, "B"))
	sent := f.send(t, "B", domain.ActionPhoto, "pic")
	assert.Contains(t, sent.Text, "lesson #1")
	assert.Equal(t, StateIdle, f.state(t, "B"))

	reports := f.snapshot(t).Reports[1]
	require.Len(t, reports, 1)
	assert.Equal(t, domain.ReportPending, reports[0].Status)
	assert.Equal(t, "done", reports[0].Text)

	review := f.messenger.Last("A")
	require.NotNil(t, review)
	require.Len(t, review.Controls, 2)
	token, err := domain.ParseReviewToken(review.Controls[0].Data)
	require.NoError(t, err)
	assert.Equal(t, 0, token.Ordinal)

	verdict := f.press(t, "A", review.Controls[0].Data)
	assert.Contains(t, verdict.Text, "approved")
	assert.Contains(t, f.messenger.Last("B").Text, "approved")

	snap := f.snapshot(t)
	assert.Equal(t, domain.ReportApproved, snap.Reports[1][0].Status)
	assert.Equal(t, 2, snap.Users["B"].CurrentLesson)
}

func TestMachine_NotReadyOffersNotifySupervisor(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)
	f.register(t, "B", domain.RoleLearner)
	before := f.snapshot(t)

	notReady := f.text(t, "B", CommandGetLesson)
	assert.Contains(t, notReady.Text, "Lesson #1 is not uploaded yet")
	require.NotEmpty(t, notReady.Controls)
	assert.Equal(t, domain.ControlNotifySupervisor, notReady.Controls[0].Data)
	assert.Equal(t, before, f.snapshot(t))
	assert.Empty(t, f.snapshot(t).Lessons)

	notified := f.press(t, "B", domain.ControlNotifySupervisor)
	assert.Equal(t, textSupervisorNotified, notified.Text)
	assert.Contains(t, f.messenger.Last("A").Text, "waiting for lesson #1")
}

func TestMachine_RoleMismatchNeverEntersState(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "B", domain.RoleLearner)

	denied := f.text(t, "B", CommandNewLesson)
	assert.Equal(t, textUnauthorized, denied.Text)
	assert.Equal(t, StateIdle, f.state(t, "B"))
	assert.Equal(t, 1, f.snapshot(t).LessonCounter)

	denied = f.text(t, "stranger", domain.MenuGetLesson)
	assert.Equal(t, textUnauthorized, denied.Text)
	assert.Nil(t, denied.Menu)
}

func TestMachine_UnacceptedInputRepromptsWithoutAdvancing(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)
	f.text(t, "A", CommandNewLesson)

	again := f.text(t, "A", "here is the lesson")
	assert.Contains(t, again.Text, "lesson #1")
	assert.Equal(t, StateAwaitingLessonMedia, f.state(t, "A"))

	again = f.text(t, "A", CommandLessons)
	assert.Contains(t, again.Text, "Please send a photo or video")
	assert.Equal(t, StateAwaitingLessonMedia, f.state(t, "A"))

	f.send(t, "A", domain.ActionVideo, "vid")
	assert.Equal(t, domain.MediaVideo, f.snapshot(t).Lessons[1].MediaKind)
}

func TestMachine_CancelDiscardsDraft(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)
	f.register(t, "B", domain.RoleLearner)
	f.text(t, "A", CommandNewLesson)
	f.send(t, "A", domain.ActionPhoto, "img")
	f.text(t, "B", CommandGetLesson)

	f.text(t, "B", CommandReport)
	f.text(t, "B", "half done")
	cancelled := f.press(t, "B", domain.ControlCancel)
	assert.Equal(t, textCancelled, cancelled.Text)

	session, err := f.sessions.Get(f.ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, session.State)
	assert.Nil(t, session.Draft)
	assert.Equal(t, 1, session.LastRetrievedLesson)
	assert.Empty(t, f.snapshot(t).Reports)

	assert.Equal(t, textNothingToCancel, f.text(t, "B", CommandCancel).Text)
}

func TestMachine_ReportInputErrorsKeepState(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "B", domain.RoleLearner)

	noLesson := f.text(t, "B", CommandReport)
	assert.Equal(t, textNoActiveLesson, noLesson.Text)
	assert.Equal(t, StateIdle, f.state(t, "B"))

	require.NoError(t, f.store.Update(f.ctx, func(snap *domain.Snapshot) error {
		snap.Users["B"].CurrentLesson = 3
		return nil
	}))
	require.NoError(t, testkit.SeedLessons(f.ctx, f.store,
		&domain.LessonModel{Number: 1, MediaPath: "lessons/1/lesson.jpg", MediaKind: domain.MediaPhoto},
		&domain.LessonModel{Number: 2, MediaPath: "lessons/2/lesson.jpg", MediaKind: domain.MediaPhoto},
	))
	prompt := f.text(t, "B", CommandReport)
	assert.Contains(t, prompt.Text, "lesson #2")

	empty := f.text(t, "B", "   ")
	assert.Equal(t, textEmptyReport, empty.Text)
	assert.Equal(t, StateAwaitingReportText, f.state(t, "B"))

	f.text(t, "B", "finished")
	again := f.text(t, "B", "more words")
	assert.Contains(t, again.Text, "photo")
	assert.Equal(t, StateAwaitingReportPhoto, f.state(t, "B"))
}

func TestMachine_PickRoleIsIdempotent(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)

	home := f.text(t, "A", CommandStart)
	assert.Equal(t, textSupervisorHome, home.Text)
	assert.Equal(t, StateIdle, f.state(t, "A"))

	f.text(t, "C", CommandStart)
	invalid := f.press(t, "C", "role:admin")
	assert.Equal(t, textInvalidRole, invalid.Text)
	assert.Equal(t, StateAwaitingRoleChoice, f.state(t, "C"))
}

func TestMachine_ListAndRemind(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)

	assert.Equal(t, textNoLessons, f.text(t, "A", CommandLessons).Text)
	assert.Equal(t, textNoLearners, f.text(t, "A", CommandRemind).Text)

	f.register(t, "B", domain.RoleLearner)
	f.text(t, "A", CommandNewLesson)
	f.press(t, "A", domain.ControlCancel)

	list := f.text(t, "A", domain.MenuListLessons)
	assert.Contains(t, list.Text, "#1 ⏳ waiting for media, reports: 0")

	reminded := f.text(t, "A", domain.MenuRemind)
	assert.Contains(t, reminded.Text, "1 learner")
	assert.Contains(t, f.messenger.Last("B").Text, "lesson #1")
}

func TestMachine_ReviewWithUnknownTokenIsDenied(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)

	denied := f.press(t, "A", domain.ReviewToken{Decision: domain.DecisionApprove, LessonNumber: 4, LearnerID: "B"}.Encode())
	assert.Equal(t, textReportNotFound, denied.Text)
	denied = f.press(t, "A", "review:approve:x")
	assert.Equal(t, textReportNotFound, denied.Text)
	assert.Equal(t, 0, f.messenger.Total())
}

func TestMachine_Reset(t *testing.T) {
	f := newFixture(t, hashSecret(t))
	f.register(t, "A", domain.RoleSupervisor)
	f.text(t, "A", CommandNewLesson)
	f.send(t, "A", domain.ActionPhoto, "img")

	denied := f.text(t, "A", CommandReset+" guess")
	assert.Equal(t, textUnauthorized, denied.Text)
	assert.Len(t, f.snapshot(t).Lessons, 1)

	done := f.text(t, "A", CommandReset+" "+resetSecret)
	assert.Equal(t, textResetDone, done.Text)
	assert.Nil(t, done.Menu)

	snap := f.snapshot(t)
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Lessons)
	assert.Equal(t, 1, snap.LessonCounter)
	_, err := f.media.Read(f.ctx, "lessons/1/lesson.jpg")
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)
}

func TestMachine_ResetDropsEverySession(t *testing.T) {
	f := newFixture(t, hashSecret(t))
	f.register(t, "A", domain.RoleSupervisor)
	f.register(t, "B", domain.RoleLearner)
	f.text(t, "A", CommandNewLesson)
	f.send(t, "A", domain.ActionPhoto, "img")
	f.text(t, "B", CommandGetLesson)
	f.text(t, "B", CommandReport)
	f.text(t, "B", "half done")
	require.Equal(t, StateAwaitingReportPhoto, f.state(t, "B"))

	f.text(t, "A", CommandReset+" "+resetSecret)

	session, err := f.sessions.Get(f.ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, NewSession("B"), session)
}

func TestMachine_StaleSessionCannotReportAfterReset(t *testing.T) {
	f := newFixtureWithSessions(t, hashSecret(t), NewKVSessionStore(newMapKV(), "session:", 0))
	f.register(t, "A", domain.RoleSupervisor)
	f.register(t, "B", domain.RoleLearner)
	f.text(t, "A", CommandNewLesson)
	f.send(t, "A", domain.ActionPhoto, "old")
	f.text(t, "B", CommandGetLesson)

	f.text(t, "A", CommandReset+" "+resetSecret)
	f.register(t, "A", domain.RoleSupervisor)
	f.text(t, "A", CommandNewLesson)
	f.send(t, "A", domain.ActionPhoto, "new")

	f.register(t, "B", domain.RoleLearner)
	session, err := f.sessions.Get(f.ctx, "B")
	require.NoError(t, err)
	require.Equal(t, 1, session.LastRetrievedLesson, "kv sessions outlive the reset")

	denied := f.text(t, "B", domain.MenuSubmitReport)
	assert.Equal(t, textNoActiveLesson, denied.Text)
	assert.Equal(t, StateIdle, f.state(t, "B"))
	assert.Empty(t, f.snapshot(t).Reports)

	f.text(t, "B", domain.MenuGetLesson)
	f.text(t, "B", domain.MenuSubmitReport)
	f.text(t, "B", "redone")
	f.send(t, "B", domain.ActionPhoto, "pic")
	reports := f.snapshot(t).Reports[1]
	require.Len(t, reports, 1)
	assert.Equal(t, "redone", reports[0].Text)
}

func TestMachine_ResetDisabledWithoutHash(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)

	assert.Equal(t, textResetDisabled, f.text(t, "A", CommandReset+" anything").Text)
	assert.Len(t, f.snapshot(t).Users, 1)
}

func TestMachine_AnonymousAction(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.machine.Handle(f.ctx, &domain.Action{Kind: domain.ActionText, Text: CommandStart})
	assert.ErrorIs(t, err, ErrAnonymousAction)
}

func TestMachine_ConcurrentUsers(t *testing.T) {
	f := newFixture(t, "")
	f.register(t, "A", domain.RoleSupervisor)

	const learners = 10
	var wg sync.WaitGroup
	for i := 0; i < learners; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, a := range []*domain.Action{
				{UserID: id, Kind: domain.ActionText, Text: CommandStart},
				{UserID: id, Kind: domain.ActionControl, Data: "role:learner"},
				{UserID: id, Kind: domain.ActionText, Text: CommandGetLesson},
			} {
				_, err := f.machine.Handle(f.ctx, a)
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("learner-%d", i))
	}
	wg.Wait()

	assert.Len(t, f.snapshot(t).UserIDsByRole(domain.RoleLearner), learners)
	assert.Equal(t, 0, f.machine.locks.size())
}
