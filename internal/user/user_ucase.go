package user

import (
	"context"
	"strings"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// UserUseCaseImpl role registry backed by the snapshot store
type UserUseCaseImpl struct {
	Store domain.Store
}

var _ domain.UserUseCase = &UserUseCaseImpl{}

// NewUserUseCase ...
func NewUserUseCase(
	Store domain.Store,
) *UserUseCaseImpl {
	return &UserUseCaseImpl{
		Store: Store,
	}
}

// AssignRole give the user a role. A user that already holds a role keeps it and
// the existing record is returned unchanged.
func (uu *UserUseCaseImpl) AssignRole(ctx context.Context, userID string, role domain.Role, displayName string) (*domain.UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.AssignRole", "service")
	defer apmSpan.End()

	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	var (
		result  domain.UserModel
		created bool
	)
	err := uu.Store.Update(ctx, func(snap *domain.Snapshot) error {
		if existing, ok := snap.Users[userID]; ok && existing.Role.Valid() {
			result = *existing
			return nil
		}
		user := &domain.UserModel{
			ID:            userID,
			Role:          role,
			DisplayName:   strings.TrimSpace(displayName),
			CurrentLesson: 1,
		}
		snap.Users[userID] = user
		result = *user
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		logging.ExtractLoggerFromContext(ctx).Info("role assigned",
			zap.String("user.id", userID), zap.String("user.role", string(role)))
	}
	return &result, nil
}

// GetRole role of the user, RoleNone if the user never picked one
func (uu *UserUseCaseImpl) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.GetRole", "service")
	defer apmSpan.End()

	role := domain.RoleNone
	err := uu.Store.View(ctx, func(snap *domain.Snapshot) error {
		role = snap.RoleOf(userID)
		return nil
	})
	return role, err
}

// CurrentLessonFor the user's progression cursor, 1 for unknown users
func (uu *UserUseCaseImpl) CurrentLessonFor(ctx context.Context, userID string) (int, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.CurrentLessonFor", "service")
	defer apmSpan.End()

	cursor := 1
	err := uu.Store.View(ctx, func(snap *domain.Snapshot) error {
		cursor = snap.Users[userID].Cursor()
		return nil
	})
	return cursor, err
}
