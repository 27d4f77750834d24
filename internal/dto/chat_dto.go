package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type StartChatRequest struct {
	Message   string     `json:"message" validate:"required,min=2,max=100000"`
	SessionId *uuid.UUID `json:"sessionId,omitempty"`
}

type StartChatResponse struct {
	JobId       uuid.UUID `json:"jobId"`
	StreamToken string    `json:"streamToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	MessageCount int        `json:"messageCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID       `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Analysis  json.RawMessage `json:"analysis,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type DeleteSessionRequest struct {
	SessionId uuid.UUID `json:"sessionId" validate:"required"`
}
