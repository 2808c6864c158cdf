package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records and reads application status history.
type Service interface {
	// Record appends one row. When tx is non-nil the row joins that
	// transaction so it commits or rolls back with the status change.
	Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.ApplicationStatusHistory, error)
	History(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusHistory, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// RecordEntryInput captures the immutable data a history row requires.
type RecordEntryInput struct {
	ApplicationID uuid.UUID                `json:"application_id"`
	OldStatus     *enums.ApplicationStatus `json:"old_status,omitempty"`
	NewStatus     enums.ApplicationStatus  `json:"new_status"`
	ChangedBy     *uuid.UUID               `json:"changed_by,omitempty"`
	ActorType     enums.ActorType          `json:"changed_by_type"`
	Remarks       *string                  `json:"remarks,omitempty"`
	Metadata      json.RawMessage          `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

// NewEntry validates input and builds the row to append.
func NewEntry(input RecordEntryInput, at time.Time) (*models.ApplicationStatusHistory, error) {
	if input.ApplicationID == uuid.Nil {
		return nil, fmt.Errorf("application id is required")
	}
	if !input.NewStatus.IsValid() {
		return nil, fmt.Errorf("invalid new status %q", input.NewStatus)
	}
	if input.OldStatus != nil && !input.OldStatus.IsValid() {
		return nil, fmt.Errorf("invalid old status %q", *input.OldStatus)
	}
	if !input.ActorType.IsValid() {
		return nil, fmt.Errorf("invalid actor type %q", input.ActorType)
	}
	if input.ActorType != enums.ActorTypeSystem && (input.ChangedBy == nil || *input.ChangedBy == uuid.Nil) {
		return nil, fmt.Errorf("changed by is required for %s actors", input.ActorType)
	}
	if len(input.Metadata) > 0 && !json.Valid(input.Metadata) {
		return nil, fmt.Errorf("metadata must be valid json")
	}

	return &models.ApplicationStatusHistory{
		ID:            uuid.New(),
		ApplicationID: input.ApplicationID,
		OldStatus:     input.OldStatus,
		NewStatus:     input.NewStatus,
		ChangedBy:     input.ChangedBy,
		ChangedByType: input.ActorType,
		Remarks:       input.Remarks,
		Metadata:      input.Metadata,
		CreatedAt:     at.UTC(),
	}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.ApplicationStatusHistory, error) {
	entry, err := NewEntry(input, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) History(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusHistory, error) {
	if applicationID == uuid.Nil {
		return nil, fmt.Errorf("application id is required")
	}
	return s.repo.ListByApplicationID(ctx, applicationID)
}
