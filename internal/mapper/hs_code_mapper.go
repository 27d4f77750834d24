package mapper

import (
	"time"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type HsCodeMapper struct{}

func NewHsCodeMapper() *HsCodeMapper {
	return &HsCodeMapper{}
}

func (m *HsCodeMapper) ToEntity(c *model.HsCode) *entity.HsCode {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.HsCode{
		Id:          c.Id,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		Chapter:     c.Chapter,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
		IsDeleted:   c.DeletedAt.Valid,
	}
}

func (m *HsCodeMapper) ToModel(c *entity.HsCode) *model.HsCode {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.HsCode{
		Id:          c.Id,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		Chapter:     c.Chapter,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}
}

type HsCodeEmbeddingMapper struct{}

func NewHsCodeEmbeddingMapper() *HsCodeEmbeddingMapper {
	return &HsCodeEmbeddingMapper{}
}

func (m *HsCodeEmbeddingMapper) ToEntity(e *model.HsCodeEmbedding) *entity.HsCodeEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.HsCodeEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		HsCodeId:       e.HsCodeId,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *HsCodeEmbeddingMapper) ToModel(e *entity.HsCodeEmbedding) *model.HsCodeEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.HsCodeEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		HsCodeId:       e.HsCodeId,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}
