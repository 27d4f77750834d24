package entity

import (
	"time"

	"github.com/google/uuid"
)

type HsCode struct {
	Id          uuid.UUID
	Code        string
	Name        string
	Description string
	Chapter     string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}

type HsCodeEmbedding struct {
	Id             uuid.UUID
	Document       string
	EmbeddingValue []float32
	HsCodeId       uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
