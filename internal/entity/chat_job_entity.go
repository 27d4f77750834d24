package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Citation names an HS code record that grounded part of the answer.
type Citation struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// BookmarkSuggestion is set when the answer text contains a recognizable
// HS code pattern worth saving.
type BookmarkSuggestion struct {
	Available bool   `json:"available"`
	Code      string `json:"code,omitempty"`
}

// DetailButton is one auxiliary detail-page link prepared for the detected intent.
type DetailButton struct {
	Type     string `json:"type"`
	Priority int    `json:"priority"`
	Target   string `json:"target"`
	Title    string `json:"title"`
	Ready    bool   `json:"ready"`
}

// JobMetadata is the structured payload carried by the terminal stream event
// and persisted alongside the assistant message for authenticated callers.
type JobMetadata struct {
	Citations []Citation         `json:"citations,omitempty"`
	Buttons   []DetailButton     `json:"buttons,omitempty"`
	Bookmark  BookmarkSuggestion `json:"bookmark"`
}

// ChatJob represents one question-to-answer lifecycle. It is owned exclusively
// by the stream orchestrator while the job is live; persistence only happens
// through the history recorder and only for authenticated callers.
type ChatJob struct {
	Id          uuid.UUID
	Query       string
	SessionId   *uuid.UUID
	UserId      *uuid.UUID
	Intent      string
	Confidence  float64
	Status      JobStatus
	Answer      string
	FailReason  string
	Metadata    JobMetadata
	CreatedAt   time.Time
	CompletedAt *time.Time
	TokenExpiry time.Time
}

func NewChatJob(query string, sessionId, userId *uuid.UUID) *ChatJob {
	return &ChatJob{
		Id:        uuid.New(),
		Query:     query,
		SessionId: sessionId,
		UserId:    userId,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
}

func (j *ChatJob) IsAuthenticated() bool {
	return j.UserId != nil && *j.UserId != uuid.Nil
}

func (j *ChatJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// MarkProcessing transitions Pending -> Processing. Returns false when the
// job is not in a state that allows the transition.
func (j *ChatJob) MarkProcessing() bool {
	if j.Status != JobStatusPending {
		return false
	}
	j.Status = JobStatusProcessing
	return true
}

// Complete transitions Processing -> Completed. Terminal states are final.
func (j *ChatJob) Complete(answer string, meta JobMetadata) bool {
	if j.IsTerminal() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Answer = answer
	j.Metadata = meta
	j.CompletedAt = &now
	return true
}

// Fail transitions any non-terminal state -> Failed. Terminal states are final.
func (j *ChatJob) Fail(reason string) bool {
	if j.IsTerminal() {
		return false
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.FailReason = reason
	j.CompletedAt = &now
	return true
}
