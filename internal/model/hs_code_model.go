package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HsCode struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code        string         `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name        string         `gorm:"type:text;not null"`
	Description string         `gorm:"type:text"`
	Chapter     string         `gorm:"type:varchar(10);index"` // first two digits of the code
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (HsCode) TableName() string {
	return "hs_codes"
}
