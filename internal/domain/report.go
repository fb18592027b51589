package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReportStatus review state of a report
type ReportStatus string

// report statuses
const (
	ReportPending  ReportStatus = "pending"
	ReportApproved ReportStatus = "approved"
	ReportRejected ReportStatus = "rejected"
)

type ReportModel struct {
	ID           string       `json:"id"`
	LessonNumber int          `json:"lesson_number"`
	LearnerID    string       `json:"learner_id"`
	LearnerName  string       `json:"learner_name"`
	Text         string       `json:"text"`
	PhotoPath    string       `json:"photo_path"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	Status       ReportStatus `json:"status"`
}

// ReportPhotoKey storage key of a report photo. The ordinal keeps the photos of
// earlier submissions for the same lesson intact.
func ReportPhotoKey(lessonNumber int, learnerID string, ordinal int) string {
	return fmt.Sprintf("reports/%d/%s_%d.jpg", lessonNumber, learnerID, ordinal)
}

// ReportDraft report content captured so far, lives in the conversation session
type ReportDraft struct {
	LessonNumber int    `json:"lesson_number"`
	Text         string `json:"text,omitempty"`
}

// ReviewDecision supervisor verdict
type ReviewDecision string

// review decisions
const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// Status report status the decision leads to
func (d ReviewDecision) Status() ReportStatus {
	if d == DecisionApprove {
		return ReportApproved
	}
	return ReportRejected
}

// ReviewToken correlates a review control with exactly one persisted report
type ReviewToken struct {
	Decision     ReviewDecision
	LessonNumber int
	LearnerID    string
	Ordinal      int
}

const reviewTokenPrefix = "review"

// Encode renders the token as control data. The learner id goes last so it may
// contain the separator.
func (rt ReviewToken) Encode() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s", reviewTokenPrefix, rt.Decision, rt.LessonNumber, rt.Ordinal, rt.LearnerID)
}

// ParseReviewToken decodes control data produced by ReviewToken.Encode
func ParseReviewToken(data string) (ReviewToken, error) {
	var rt ReviewToken
	parts := strings.SplitN(data, ":", 5)
	if len(parts) != 5 || parts[0] != reviewTokenPrefix {
		return rt, fmt.Errorf("malformed review token %q", data)
	}
	decision := ReviewDecision(parts[1])
	if decision != DecisionApprove && decision != DecisionReject {
		return rt, fmt.Errorf("unknown review decision %q", parts[1])
	}
	lesson, err := strconv.Atoi(parts[2])
	if err != nil || lesson < 1 {
		return rt, fmt.Errorf("bad lesson number in review token %q", data)
	}
	ordinal, err := strconv.Atoi(parts[3])
	if err != nil || ordinal < 0 {
		return rt, fmt.Errorf("bad ordinal in review token %q", data)
	}
	if parts[4] == "" {
		return rt, fmt.Errorf("missing learner in review token %q", data)
	}
	rt.Decision = decision
	rt.LessonNumber = lesson
	rt.Ordinal = ordinal
	rt.LearnerID = parts[4]
	return rt, nil
}

// IsReviewToken cheap prefix check used when classifying control presses
func IsReviewToken(data string) bool {
	return strings.HasPrefix(data, reviewTokenPrefix+":")
}

type ReportUseCase interface {
	BeginSubmission(ctx context.Context, learnerID string, lastRetrieved int) (int, error)
	CaptureText(ctx context.Context, draft *ReportDraft, lessonNumber int, text string) error
	Submit(ctx context.Context, learnerID string, draft *ReportDraft, photo []byte) (*ReportModel, int, error)
	Review(ctx context.Context, reviewerID string, token ReviewToken) (*ReportModel, error)
}
