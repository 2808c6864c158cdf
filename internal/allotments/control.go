package allotments

import (
	"context"

	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const cancelledReason = "schedule cancelled"

// CancelInput cancels a batch that has not started.
type CancelInput struct {
	ScheduleID uuid.UUID
	AdminID    uuid.UUID
}

// RetryInput re-queues the failed letters of a finished batch.
type RetryInput struct {
	ScheduleID uuid.UUID
	AdminID    uuid.UUID
}

// RetryResult reports how many rows went back to PENDING.
type RetryResult struct {
	Schedule models.AllotmentEmailSchedule `json:"schedule"`
	Requeued int                           `json:"requeued"`
}

// Cancel moves a SCHEDULED batch to CANCELLED and fails its pending rows,
// which frees the post for a new batch.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.AllotmentEmailSchedule, error) {
	if input.ScheduleID == uuid.Nil || input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule id and admin id are required")
	}

	var out *models.AllotmentEmailSchedule
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		schedule, err := repo.FindSchedule(ctx, input.ScheduleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load schedule")
		}
		if schedule == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
		}
		if schedule.Status != enums.AllotmentScheduleScheduled {
			return stateConflict(schedule, "only scheduled distributions can be cancelled")
		}

		now := s.now().UTC()
		n, err := repo.UpdateScheduleIfStatus(ctx, schedule.ID, enums.AllotmentScheduleScheduled, map[string]any{
			"status":       enums.AllotmentScheduleCancelled,
			"cancelled_by": input.AdminID,
			"completed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel schedule")
		}
		if n == 0 {
			return stateConflict(schedule, "schedule was picked up before it could be cancelled")
		}
		if _, err := repo.FailPendingTracking(ctx, schedule.ID, cancelledReason, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail pending tracking")
		}

		schedule.Status = enums.AllotmentScheduleCancelled
		schedule.CancelledBy = &input.AdminID
		schedule.CompletedAt = &now
		schedule.UpdatedAt = now
		out = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Retry re-queues FAILED rows under the retry ceiling and reopens the batch
// for immediate dispatch.
func (s *service) Retry(ctx context.Context, input RetryInput) (*RetryResult, error) {
	if input.ScheduleID == uuid.Nil || input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule id and admin id are required")
	}

	var out *RetryResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		schedule, err := repo.FindSchedule(ctx, input.ScheduleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load schedule")
		}
		if schedule == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
		}
		from := schedule.Status
		if from != enums.AllotmentScheduleCompleted && from != enums.AllotmentScheduleFailed {
			return stateConflict(schedule, "only completed or failed distributions can be retried")
		}

		active, err := repo.HasScheduled(ctx, schedule.PostID, schedule.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active schedules")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeActiveScheduleConflict, "post already has a scheduled distribution").
				WithDetails(map[string]any{"post_id": schedule.PostID})
		}

		now := s.now().UTC()
		requeued, err := repo.ResetRetryableTracking(ctx, schedule.ID, s.maxRetries, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset failed tracking")
		}
		if requeued == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no failed e-mails below the retry limit").
				WithDetails(map[string]any{"max_retries": s.maxRetries})
		}

		n, err := repo.UpdateScheduleIfStatus(ctx, schedule.ID, from, map[string]any{
			"status":         enums.AllotmentScheduleScheduled,
			"scheduled_date": now,
			"completed_at":   nil,
			"updated_at":     now,
		})
		if err != nil {
			if db.IsUniqueViolation(err, scheduledPerPostIndex) {
				return pkgerrors.Wrap(pkgerrors.CodeActiveScheduleConflict, err, "post already has a scheduled distribution").
					WithDetails(map[string]any{"post_id": schedule.PostID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen schedule")
		}
		if n == 0 {
			return stateConflict(schedule, "schedule changed while retrying")
		}

		schedule.Status = enums.AllotmentScheduleScheduled
		schedule.ScheduledDate = now
		schedule.CompletedAt = nil
		schedule.UpdatedAt = now
		out = &RetryResult{Schedule: *schedule, Requeued: int(requeued)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func stateConflict(schedule *models.AllotmentEmailSchedule, msg string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"schedule_id": schedule.ID, "status": schedule.Status})
}
