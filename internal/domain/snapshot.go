package domain

import (
	"context"
	"sort"
)

// Snapshot the whole persisted document
type Snapshot struct {
	Users         map[string]*UserModel  `json:"users"`
	Lessons       map[int]*LessonModel   `json:"lessons"`
	Reports       map[int][]*ReportModel `json:"reports"`
	LessonCounter int                    `json:"lesson_counter"` // next number to assign
}

// NewSnapshot returns the empty document
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Users:         make(map[string]*UserModel),
		Lessons:       make(map[int]*LessonModel),
		Reports:       make(map[int][]*ReportModel),
		LessonCounter: 1,
	}
}

// Normalize fills in collections missing from a decoded document
func (s *Snapshot) Normalize() {
	if s.Users == nil {
		s.Users = make(map[string]*UserModel)
	}
	if s.Lessons == nil {
		s.Lessons = make(map[int]*LessonModel)
	}
	if s.Reports == nil {
		s.Reports = make(map[int][]*ReportModel)
	}
	if s.LessonCounter < 1 {
		s.LessonCounter = 1
	}
}

// RoleOf role of the user or RoleNone
func (s *Snapshot) RoleOf(userID string) Role {
	if u, ok := s.Users[userID]; ok {
		return u.Role
	}
	return RoleNone
}

// UserIDsByRole ids of every user holding role, sorted
func (s *Snapshot) UserIDsByRole(role Role) []string {
	var ids []string
	for id, u := range s.Users {
		if u.Role == role {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// LearnersAt learners whose cursor points at lesson number
func (s *Snapshot) LearnersAt(number int) []string {
	var ids []string
	for id, u := range s.Users {
		if u.Role == RoleLearner && u.Cursor() == number {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SnapshotBackend durable storage of the document
type SnapshotBackend interface {
	// Load returns the stored document, persisting a fresh one if none exists
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	// Reset replaces the stored document with the empty one
	Reset(ctx context.Context) error
}

// Store serialized unit-of-work access to the document
type Store interface {
	View(ctx context.Context, fn func(snap *Snapshot) error) error
	// Update saves the document only if fn returns nil
	Update(ctx context.Context, fn func(snap *Snapshot) error) error
	// Reset wipes every entity and all stored media
	Reset(ctx context.Context) error
}
