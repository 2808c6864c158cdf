package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lifecycle is the soft-delete state shared by master and applicant records.
type Lifecycle struct {
	IsActive  bool       `gorm:"column:is_active;not null" json:"is_active"`
	DeletedAt *time.Time `gorm:"column:deleted_at;type:timestamptz" json:"deleted_at,omitempty"`
	DeletedBy *uuid.UUID `gorm:"column:deleted_by;type:uuid" json:"deleted_by,omitempty"`
}

// NewLifecycle returns the state of a freshly created, live record.
func NewLifecycle() Lifecycle {
	return Lifecycle{IsActive: true}
}

// SoftDelete marks the record inactive. Records are never hard-deleted.
func (l *Lifecycle) SoftDelete(by uuid.UUID, at time.Time) {
	at = at.UTC()
	l.IsActive = false
	l.DeletedAt = &at
	l.DeletedBy = &by
}

// ActiveOnly scopes a query to live rows of the given table (or alias).
func ActiveOnly(table string) func(*gorm.DB) *gorm.DB {
	column := "is_active"
	if table != "" {
		column = table + ".is_active"
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", true)
	}
}
