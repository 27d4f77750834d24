package dto

import "github.com/google/uuid"

// PublishIndexHsCodeMessage is the payload queued for the embedding indexer
// whenever an HS code record is created or updated.
type PublishIndexHsCodeMessage struct {
	HsCodeId uuid.UUID `json:"hsCodeId"`
}

type CreateHsCodeRequest struct {
	Code        string `json:"code" validate:"required,min=4,max=20"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Chapter     string `json:"chapter" validate:"max=255"`
}

type HsCodeResponse struct {
	Id          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Chapter     string    `json:"chapter,omitempty"`
}
