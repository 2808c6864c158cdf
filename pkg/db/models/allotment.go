package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/recruitment-backend/pkg/enums"
)

// AllotmentEmailSchedule is one distribution batch of allotment letters for a post.
type AllotmentEmailSchedule struct {
	ID              uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PostID          uuid.UUID                     `gorm:"column:post_id;type:uuid;not null" json:"post_id"`
	UploadID        uuid.UUID                     `gorm:"column:upload_id;type:uuid;not null" json:"upload_id"`
	ScheduledDate   time.Time                     `gorm:"column:scheduled_date;not null" json:"scheduled_date"`
	Status          enums.AllotmentScheduleStatus `gorm:"column:status;type:allotment_schedule_status_enum;not null" json:"status"`
	TotalRecipients int                           `gorm:"column:total_recipients;not null" json:"total_recipients"`
	EmailsSent      int                           `gorm:"column:emails_sent;not null" json:"emails_sent"`
	EmailsFailed    int                           `gorm:"column:emails_failed;not null" json:"emails_failed"`
	StartedAt       *time.Time                    `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time                    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedBy       uuid.UUID                     `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CancelledBy     *uuid.UUID                    `gorm:"column:cancelled_by;type:uuid" json:"cancelled_by,omitempty"`
	CreatedAt       time.Time                     `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"column:updated_at;not null" json:"updated_at"`
}

// AllotmentEmailTracking is the per-(post, applicant) notification record.
// The unique (post_id, applicant_id) constraint guarantees at most one
// successful send per candidate and post.
type AllotmentEmailTracking struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ScheduleID    uuid.UUID                  `gorm:"column:schedule_id;type:uuid;not null" json:"schedule_id"`
	PostID        uuid.UUID                  `gorm:"column:post_id;type:uuid;not null;uniqueIndex:uq_allotment_tracking_post_applicant" json:"post_id"`
	ApplicantID   uuid.UUID                  `gorm:"column:applicant_id;type:uuid;not null;uniqueIndex:uq_allotment_tracking_post_applicant" json:"applicant_id"`
	ApplicationID uuid.UUID                  `gorm:"column:application_id;type:uuid;not null" json:"application_id"`
	Email         string                     `gorm:"column:email;not null" json:"email"`
	Status        enums.AllotmentEmailStatus `gorm:"column:status;type:allotment_email_status_enum;not null" json:"status"`
	SentAt        *time.Time                 `gorm:"column:sent_at" json:"sent_at,omitempty"`
	ErrorMessage  *string                    `gorm:"column:error_message" json:"error_message,omitempty"`
	RetryCount    int                        `gorm:"column:retry_count;not null" json:"retry_count"`
	MessageID     *string                    `gorm:"column:message_id" json:"message_id,omitempty"`
	CreatedAt     time.Time                  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (AllotmentEmailTracking) TableName() string { return "allotment_email_tracking" }
