package domain

import (
	"context"
)

// Role is the part a user plays in the workflow
type Role string

// available roles
const (
	RoleNone       Role = ""
	RoleSupervisor Role = "supervisor"
	RoleLearner    Role = "learner"
)

// Valid reports whether r is one of the assignable roles
func (r Role) Valid() bool {
	return r == RoleSupervisor || r == RoleLearner
}

type UserModel struct {
	ID            string `json:"id"`
	Role          Role   `json:"role"`
	DisplayName   string `json:"display_name"`
	CurrentLesson int    `json:"current_lesson"` // next lesson the user may retrieve
}

// Cursor returns the progression cursor, defaulting to 1
func (u *UserModel) Cursor() int {
	if u == nil || u.CurrentLesson < 1 {
		return 1
	}
	return u.CurrentLesson
}

type UserUseCase interface {
	AssignRole(ctx context.Context, userID string, role Role, displayName string) (*UserModel, error)
	GetRole(ctx context.Context, userID string) (Role, error)
	CurrentLessonFor(ctx context.Context, userID string) (int, error)
}
