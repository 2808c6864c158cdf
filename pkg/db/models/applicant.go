package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddressType distinguishes permanent and correspondence addresses.
type AddressType string

const (
	AddressTypePermanent AddressType = "PERMANENT"
	AddressTypeCurrent   AddressType = "CURRENT"
)

// Applicant is the person behind one or more applications.
type Applicant struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	FullName    string     `gorm:"column:full_name;not null"`
	Email       *string    `gorm:"column:email"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date"`
	Lifecycle   `gorm:"embedded"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// ApplicantAddress stores one address of an applicant.
type ApplicantAddress struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	ApplicantID uuid.UUID   `gorm:"column:applicant_id;type:uuid;not null"`
	AddressType AddressType `gorm:"column:address_type;not null"`
	DistrictID  *uuid.UUID  `gorm:"column:district_id;type:uuid"`
	Line1       string      `gorm:"column:line1"`
	Lifecycle   `gorm:"embedded"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

// ApplicantEducation is one qualification. DisplayOrder is the configurable
// rank of the qualification level (higher means more advanced).
type ApplicantEducation struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ApplicantID       uuid.UUID       `gorm:"column:applicant_id;type:uuid;not null"`
	QualificationName string          `gorm:"column:qualification_name;not null"`
	DisplayOrder      int             `gorm:"column:display_order;not null"`
	Percentage        decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	Lifecycle         `gorm:"embedded"`
	CreatedAt         time.Time `gorm:"column:created_at;not null"`
}

// ApplicantExperience is one employment period. A nil EndDate means ongoing.
type ApplicantExperience struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ApplicantID  uuid.UUID  `gorm:"column:applicant_id;type:uuid;not null"`
	Organization string     `gorm:"column:organization;not null"`
	StartDate    time.Time  `gorm:"column:start_date;type:date;not null"`
	EndDate      *time.Time `gorm:"column:end_date;type:date"`
	IsRelevant   bool       `gorm:"column:is_relevant;not null"`
	Lifecycle    `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}
