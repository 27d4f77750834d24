package specification

import "gorm.io/gorm"

// ByCode filters HS code records by exact code match.
type ByCode struct {
	Code string
}

func (s ByCode) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code = ?", s.Code)
}

// ByCodePrefix filters HS code records whose code starts with the given
// digits, e.g. "8471" matches "8471.30-0000".
type ByCodePrefix struct {
	Prefix string
}

func (s ByCodePrefix) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code LIKE ?", s.Prefix+"%")
}

// HsCodeSearchQuery filters HS code records by name or description (case-insensitive).
type HsCodeSearchQuery struct {
	Query string
}

func (s HsCodeSearchQuery) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Query + "%"
	return db.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
}
