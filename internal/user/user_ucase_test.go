package user

import (
	"context"
	"testing"

	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserUseCaseImpl_AssignRole(t *testing.T) {
	ctx := context.Background()
	s, _ := testkit.NewStore()
	uu := NewUserUseCase(s)

	user, err := uu.AssignRole(ctx, "u1", domain.RoleLearner, "  Bob ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLearner, user.Role)
	assert.Equal(t, "Bob", user.DisplayName)
	assert.Equal(t, 1, user.CurrentLesson)

	role, err := uu.GetRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLearner, role)
}

func TestUserUseCaseImpl_AssignRoleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := testkit.NewStore()
	uu := NewUserUseCase(s)

	_, err := uu.AssignRole(ctx, "u1", domain.RoleSupervisor, "Ann")
	require.NoError(t, err)

	again, err := uu.AssignRole(ctx, "u1", domain.RoleLearner, "Someone else")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupervisor, again.Role)
	assert.Equal(t, "Ann", again.DisplayName)

	role, err := uu.GetRole(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupervisor, role)
}

func TestUserUseCaseImpl_AssignRoleInvalid(t *testing.T) {
	s, _ := testkit.NewStore()
	uu := NewUserUseCase(s)

	_, err := uu.AssignRole(context.Background(), "u1", domain.Role("admin"), "Eve")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	role, err := uu.GetRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, role)
}

func TestUserUseCaseImpl_CurrentLessonFor(t *testing.T) {
	ctx := context.Background()
	s, _ := testkit.NewStore()
	uu := NewUserUseCase(s)

	cursor, err := uu.CurrentLessonFor(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1, cursor)

	require.NoError(t, testkit.Seed(ctx, s, &domain.UserModel{ID: "l1", Role: domain.RoleLearner, CurrentLesson: 4}))
	cursor, err = uu.CurrentLessonFor(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 4, cursor)
}
