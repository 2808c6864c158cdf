package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a recruitment vacancy applicants apply to. Only the fields the
// decision pipeline reads are mapped here.
type Post struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code                   string     `gorm:"column:code;not null"`
	Title                  string     `gorm:"column:title;not null"`
	DistrictID             *uuid.UUID `gorm:"column:district_id;type:uuid"`
	AgeReferenceDate       *time.Time `gorm:"column:age_reference_date;type:date"`
	LocalResidentPreferred bool       `gorm:"column:local_resident_preferred;not null"`
	LocalResidentRequired  bool       `gorm:"column:local_resident_required;not null"`
	Lifecycle              `gorm:"embedded"`
	CreatedAt              time.Time `gorm:"column:created_at;not null"`
	UpdatedAt              time.Time `gorm:"column:updated_at;not null"`
}

// AllotmentUpload is an allotment letter document uploaded for a post.
type AllotmentUpload struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PostID       uuid.UUID  `gorm:"column:post_id;type:uuid;not null"`
	FilePath     string     `gorm:"column:file_path;not null"`
	OriginalName string     `gorm:"column:original_name;not null"`
	UploadedBy   *uuid.UUID `gorm:"column:uploaded_by;type:uuid"`
	Lifecycle    `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (AllotmentUpload) TableName() string { return "allotment_uploads" }
