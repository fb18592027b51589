package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthorized the user's role does not allow the operation
var ErrUnauthorized = errors.New("operation is not allowed for this role")

// ErrNotReady the lesson exists but has no media yet
var ErrNotReady = errors.New("lesson is not uploaded yet")

// ErrNoActiveLesson nothing has been retrieved that a report could refer to
var ErrNoActiveLesson = errors.New("no active lesson to report on")

// ErrReportNotFound no report at the referenced (lesson, learner, ordinal)
var ErrReportNotFound = errors.New("report not found")

// ErrLessonNotFound no lesson slot was created for the number
var ErrLessonNotFound = errors.New("lesson slot not found")

// ErrLessonAlreadyReady media was already attached to the lesson
var ErrLessonAlreadyReady = errors.New("lesson media is already uploaded")

// ErrInvalidRole role is neither supervisor nor learner
var ErrInvalidRole = errors.New("unknown role")

// ErrInvalidMedia media payload is empty or of an unsupported kind
var ErrInvalidMedia = errors.New("unsupported or empty media")

// ErrEmptyReport report text was not captured before the photo
var ErrEmptyReport = errors.New("report text is missing")

// ErrNoLearners no learner is registered yet
var ErrNoLearners = errors.New("no learners registered")

// ErrIO media or snapshot I/O failed, wrapped together with the cause
var ErrIO = errors.New("storage i/o failure")

// ErrNotConnected the messaging transport cannot reach the user
var ErrNotConnected = errors.New("user is not connected")

// ErrMediaNotFound nothing is stored under the media path
var ErrMediaNotFound = errors.New("media not found")

// ErrInvalidMediaKey media key escapes the storage root
var ErrInvalidMediaKey = errors.New("invalid media key")

// LessonNotReadyError names the lesson that has no media yet, it matches ErrNotReady
type LessonNotReadyError struct {
	Number int
}

func (e *LessonNotReadyError) Error() string {
	return fmt.Sprintf("lesson %d is not uploaded yet", e.Number)
}

func (e *LessonNotReadyError) Unwrap() error {
	return ErrNotReady
}
