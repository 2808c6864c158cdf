package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/recruitment-backend/pkg/enums"
)

// Application is one applicant's submission for one post.
type Application struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ApplicationNo        string                   `gorm:"column:application_no;not null" json:"application_no"`
	ApplicantID          uuid.UUID                `gorm:"column:applicant_id;type:uuid;not null" json:"applicant_id"`
	PostID               uuid.UUID                `gorm:"column:post_id;type:uuid;not null" json:"post_id"`
	Status               enums.ApplicationStatus  `gorm:"column:status;type:application_status_enum;not null" json:"status"`
	IsLocked             bool                     `gorm:"column:is_locked;not null" json:"is_locked"`
	SystemEligibility    *bool                    `gorm:"column:system_eligibility" json:"system_eligibility,omitempty"`
	EligibilityCheckedAt *time.Time               `gorm:"column:eligibility_checked_at;type:timestamptz" json:"eligibility_checked_at,omitempty"`
	MeritScore           *int64                   `gorm:"column:merit_score" json:"merit_score,omitempty"`
	SubmittedAt          *time.Time               `gorm:"column:submitted_at;type:timestamptz" json:"submitted_at,omitempty"`
	SelectionStatus      *enums.ApplicationStatus `gorm:"column:selection_status;type:application_status_enum" json:"selection_status,omitempty"`
	DeclarationAccepted  bool                     `gorm:"column:declaration_accepted;not null" json:"declaration_accepted"`
	Lifecycle            `gorm:"embedded"`
	CreatedAt            time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// ApplicationStatusHistory is an append-only ledger row. Rows are never
// updated or deleted.
type ApplicationStatusHistory struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID                `gorm:"column:application_id;type:uuid;not null" json:"application_id"`
	OldStatus     *enums.ApplicationStatus `gorm:"column:old_status;type:application_status_enum" json:"old_status,omitempty"`
	NewStatus     enums.ApplicationStatus  `gorm:"column:new_status;type:application_status_enum;not null" json:"new_status"`
	ChangedBy     *uuid.UUID               `gorm:"column:changed_by;type:uuid" json:"changed_by,omitempty"`
	ChangedByType enums.ActorType          `gorm:"column:changed_by_type;type:actor_type_enum;not null" json:"changed_by_type"`
	Remarks       *string                  `gorm:"column:remarks" json:"remarks,omitempty"`
	Metadata      json.RawMessage          `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time                `gorm:"column:created_at;not null" json:"created_at"`
}

func (ApplicationStatusHistory) TableName() string { return "application_status_history" }

// EligibilityResult is the latest eligibility snapshot of an application.
type EligibilityResult struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID       `gorm:"column:application_id;type:uuid;not null;uniqueIndex" json:"application_id"`
	IsEligible    bool            `gorm:"column:is_eligible;not null" json:"is_eligible"`
	Checks        json.RawMessage `gorm:"column:checks;type:jsonb;not null" json:"checks,omitempty"`
	CheckedAt     time.Time       `gorm:"column:checked_at;not null" json:"checked_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

// MeritList is a historical ranking snapshot row. Live ranking is authoritative.
type MeritList struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID  `gorm:"column:application_id;type:uuid;not null" json:"application_id"`
	PostID        uuid.UUID  `gorm:"column:post_id;type:uuid;not null" json:"post_id"`
	DistrictID    *uuid.UUID `gorm:"column:district_id;type:uuid" json:"district_id,omitempty"`
	Score         int64      `gorm:"column:score;not null" json:"score"`
	Rank          int        `gorm:"column:rank;not null" json:"rank"`
	GeneratedBy   *uuid.UUID `gorm:"column:generated_by;type:uuid" json:"generated_by,omitempty"`
	GeneratedAt   time.Time  `gorm:"column:generated_at;not null" json:"generated_at"`
}

func (MeritList) TableName() string { return "merit_lists" }
