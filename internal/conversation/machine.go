package conversation

import (
	"context"
	"errors"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// ErrAnonymousAction action carries no user id
var ErrAnonymousAction = errors.New("action has no user")

// ResetGuard decides whether a reset secret is accepted
type ResetGuard interface {
	Enabled() bool
	Verify(secret string) (bool, error)
}

type request struct {
	action  *domain.Action
	session *Session
	role    domain.Role // role after the handler ran
}

type handlerFunc func(ctx context.Context, req *request) ([]*domain.OutboundMessage, error)

// transition handler of one table cell, role is required unless it is RoleNone
type transition struct {
	role   domain.Role
	handle handlerFunc
}

// Machine per-user conversation controller. Actions of one user run in arrival order,
// actions of different users run concurrently.
type Machine struct {
	Users    domain.UserUseCase
	Lessons  domain.LessonUseCase
	Reports  domain.ReportUseCase
	Sessions SessionStore
	Store    domain.Store
	Guard    ResetGuard

	locks *keyedMutex
	table map[State]map[Input]transition
}

// NewMachine ...
func NewMachine(
	Users domain.UserUseCase,
	Lessons domain.LessonUseCase,
	Reports domain.ReportUseCase,
	Sessions SessionStore,
	Store domain.Store,
	Guard ResetGuard,
) *Machine {
	m := &Machine{
		Users:    Users,
		Lessons:  Lessons,
		Reports:  Reports,
		Sessions: Sessions,
		Store:    Store,
		Guard:    Guard,
		locks:    newKeyedMutex(),
	}
	m.table = m.transitions()
	return m
}

func (m *Machine) transitions() map[State]map[Input]transition {
	cancel := transition{domain.RoleNone, m.cancel}
	reset := transition{domain.RoleNone, m.reset}
	return map[State]map[Input]transition{
		StateIdle: {
			InputStart:            {domain.RoleNone, m.start},
			InputNewLesson:        {domain.RoleSupervisor, m.newLesson},
			InputListLessons:      {domain.RoleSupervisor, m.listLessons},
			InputRemind:           {domain.RoleSupervisor, m.remind},
			InputReview:           {domain.RoleSupervisor, m.review},
			InputGetLesson:        {domain.RoleLearner, m.getLesson},
			InputSubmitReport:     {domain.RoleLearner, m.beginReport},
			InputNotifySupervisor: {domain.RoleLearner, m.notifySupervisors},
			InputCheckStatus:      {domain.RoleLearner, m.checkStatus},
			InputCancel:           {domain.RoleNone, m.nothingToCancel},
			InputReset:            reset,
		},
		StateAwaitingRoleChoice: {
			InputPickRole: {domain.RoleNone, m.pickRole},
			InputCancel:   cancel,
			InputReset:    reset,
		},
		StateAwaitingLessonMedia: {
			InputPhoto:  {domain.RoleSupervisor, m.attachMedia},
			InputVideo:  {domain.RoleSupervisor, m.attachMedia},
			InputCancel: cancel,
			InputReset:  reset,
		},
		StateAwaitingReportText: {
			InputText:   {domain.RoleLearner, m.captureText},
			InputCancel: cancel,
			InputReset:  reset,
		},
		StateAwaitingReportPhoto: {
			InputPhoto:  {domain.RoleLearner, m.submitReport},
			InputCancel: cancel,
			InputReset:  reset,
		},
	}
}

// Accepts whether state has a transition for input
func (m *Machine) Accepts(state State, input Input) bool {
	_, ok := m.table[state][input]
	return ok
}

// Handle run one action through the user's session and return the replies for that user.
// Domain failures become replies, only session or role lookups fail the call.
func (m *Machine) Handle(ctx context.Context, action *domain.Action) ([]*domain.OutboundMessage, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Machine.Handle", "service")
	defer apmSpan.End()

	if action == nil || action.UserID == "" {
		return nil, ErrAnonymousAction
	}
	unlock := m.locks.Lock(action.UserID)
	defer unlock()

	session, err := m.Sessions.Get(ctx, action.UserID)
	if err != nil {
		return nil, err
	}
	role, err := m.Users.GetRole(ctx, action.UserID)
	if err != nil {
		return nil, err
	}

	input := Classify(action)
	logger := logging.ExtractLoggerFromContext(ctx).With(
		zap.String("user.id", action.UserID),
		zap.String("conversation.state", string(session.State)),
		zap.String("conversation.input", string(input)),
	)
	ctx = logging.SetLoggerInContext(ctx, logger)

	req := &request{action: action, session: session, role: role}
	var replies []*domain.OutboundMessage
	tr, ok := m.table[session.State][input]
	switch {
	case !ok:
		replies = reprompt(session, role)
	case tr.role != domain.RoleNone && tr.role != role:
		logger.Info("action rejected for role", zap.String("user.role", string(role)))
		session.ToIdle()
		replies = reply(textUnauthorized)
	default:
		replies, err = tr.handle(ctx, req)
		if err != nil {
			replies = m.explain(ctx, req, err)
		}
	}

	for _, r := range replies {
		if r.Menu == nil {
			r.Menu = domain.MenuFor(req.role)
		}
	}
	if err := m.persist(ctx, session); err != nil {
		logger.Error("failed to persist session", zap.Error(err))
	}
	return replies, nil
}

func (m *Machine) persist(ctx context.Context, session *Session) error {
	if session.Blank() {
		return m.Sessions.Delete(ctx, session.UserID)
	}
	return m.Sessions.Save(ctx, session)
}

// explain translate a handler failure into replies. Rule violations end the flow,
// input problems keep the state so the user can try again.
func (m *Machine) explain(ctx context.Context, req *request, err error) []*domain.OutboundMessage {
	session := req.session

	var notReady *domain.LessonNotReadyError
	if errors.As(err, &notReady) {
		session.ToIdle()
		return []*domain.OutboundMessage{notReadyReply(notReady.Number)}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		session.ToIdle()
		return reply(textUnauthorized)
	case errors.Is(err, domain.ErrNoActiveLesson):
		session.ToIdle()
		return reply(textNoActiveLesson)
	case errors.Is(err, domain.ErrReportNotFound):
		session.ToIdle()
		return reply(textReportNotFound)
	case errors.Is(err, domain.ErrLessonNotFound):
		session.ToIdle()
		return reply(textLessonNotFound)
	case errors.Is(err, domain.ErrLessonAlreadyReady):
		session.ToIdle()
		return reply(textLessonAlreadyReady)
	case errors.Is(err, domain.ErrNoLearners):
		session.ToIdle()
		return reply(textNoLearners)
	case errors.Is(err, domain.ErrInvalidRole):
		return []*domain.OutboundMessage{{Text: textInvalidRole, Controls: roleControls()}}
	case errors.Is(err, domain.ErrEmptyReport):
		return []*domain.OutboundMessage{{Text: textEmptyReport, Controls: cancelControls()}}
	case errors.Is(err, domain.ErrInvalidMedia):
		return []*domain.OutboundMessage{{Text: textInvalidMedia, Controls: cancelControls()}}
	}

	logging.ExtractLoggerFromContext(ctx).Error("action failed", zap.Error(err))
	return reply(textRetry)
}
