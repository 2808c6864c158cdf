package allotments

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errTrackingMoved = errors.New("tracking row changed concurrently")

// scheduledPerPostIndex allows one SCHEDULED batch per post.
const scheduledPerPostIndex = "uq_allotment_schedules_one_scheduled"

// ScheduleInput creates a distribution batch for a post.
type ScheduleInput struct {
	PostID      uuid.UUID
	UploadID    uuid.UUID
	ScheduledAt time.Time
	AdminID     uuid.UUID
	// IncludeExhausted also queues candidates whose letter failed the
	// maximum number of times. Their retry count starts over.
	IncludeExhausted bool
}

// ScheduleResult reports the created batch. NothingToDo is set, and Schedule
// is nil, when every selected candidate already has a letter on record.
type ScheduleResult struct {
	Schedule       *models.AllotmentEmailSchedule `json:"schedule,omitempty"`
	Recipients     int                            `json:"recipients"`
	Reused         int                            `json:"reused"`
	AlreadyHandled int                            `json:"already_handled"`
	Exhausted      int                            `json:"exhausted"`
	NothingToDo    bool                           `json:"nothing_to_do"`
}

// Schedule computes the delta of SELECTED candidates without a sent or queued
// letter and records it as one SCHEDULED batch in a single transaction.
func (s *service) Schedule(ctx context.Context, input ScheduleInput) (*ScheduleResult, error) {
	if input.PostID == uuid.Nil || input.UploadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id and upload id are required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}

	now := s.now().UTC()
	scheduledAt := input.ScheduledAt.UTC()
	if input.ScheduledAt.IsZero() {
		scheduledAt = now
	}

	var result *ScheduleResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		post, err := repo.FindPost(ctx, input.PostID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
		}
		if post == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		upload, err := repo.FindUpload(ctx, input.UploadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload")
		}
		if upload == nil || upload.PostID != post.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "allotment upload not found for post")
		}

		active, err := repo.HasScheduled(ctx, post.ID, uuid.Nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active schedules")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeActiveScheduleConflict, "post already has a scheduled distribution").
				WithDetails(map[string]any{"post_id": post.ID})
		}

		recipients, err := repo.ListSelectedRecipients(ctx, post.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list selected candidates")
		}
		existing, err := repo.ListTrackingByPost(ctx, post.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking")
		}

		plan := planDelta(recipients, existing, s.maxRetries, input.IncludeExhausted)
		result = &ScheduleResult{
			AlreadyHandled: plan.handled,
			Exhausted:      plan.exhausted,
		}
		if len(plan.fresh)+len(plan.reuse) == 0 {
			result.NothingToDo = true
			return nil
		}

		schedule := &models.AllotmentEmailSchedule{
			ID:              uuid.New(),
			PostID:          post.ID,
			UploadID:        upload.ID,
			ScheduledDate:   scheduledAt,
			Status:          enums.AllotmentScheduleScheduled,
			TotalRecipients: len(plan.fresh) + len(plan.reuse),
			CreatedBy:       input.AdminID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateSchedule(ctx, schedule); err != nil {
			if db.IsUniqueViolation(err, scheduledPerPostIndex) {
				return pkgerrors.Wrap(pkgerrors.CodeActiveScheduleConflict, err, "post already has a scheduled distribution").
					WithDetails(map[string]any{"post_id": post.ID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create schedule")
		}

		rows := make([]models.AllotmentEmailTracking, 0, len(plan.fresh))
		for _, recipient := range plan.fresh {
			rows = append(rows, models.AllotmentEmailTracking{
				ID:            uuid.New(),
				ScheduleID:    schedule.ID,
				PostID:        post.ID,
				ApplicantID:   recipient.ApplicantID,
				ApplicationID: recipient.ApplicationID,
				Email:         recipient.Email,
				Status:        enums.AllotmentEmailPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err := repo.CreateTracking(ctx, rows); err != nil {
			if db.IsUniqueViolation(err, "uq_allotment_tracking_post_applicant") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "tracking rows were created concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking")
		}
		for _, reuse := range plan.reuse {
			if err := repo.ReassignTracking(ctx, reuse.trackingID, schedule.ID, reuse.recipient, reuse.resetRetries, now); err != nil {
				if errors.Is(err, errTrackingMoved) {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "tracking row changed while scheduling")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reuse tracking")
			}
		}

		result.Schedule = schedule
		result.Recipients = schedule.TotalRecipients
		result.Reused = len(plan.reuse)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type reusedRow struct {
	trackingID   uuid.UUID
	recipient    Recipient
	resetRetries bool
}

type deltaPlan struct {
	fresh     []Recipient
	reuse     []reusedRow
	handled   int
	exhausted int
}

// planDelta splits SELECTED candidates by their existing tracking row. SENT,
// PENDING and BOUNCED rows are left alone; FAILED rows under the retry
// ceiling are moved onto the new batch, and so are FAILED rows at the
// ceiling when includeExhausted is set.
func planDelta(recipients []Recipient, existing []models.AllotmentEmailTracking, maxRetries int, includeExhausted bool) deltaPlan {
	byApplicant := make(map[uuid.UUID]models.AllotmentEmailTracking, len(existing))
	for _, row := range existing {
		byApplicant[row.ApplicantID] = row
	}

	var plan deltaPlan
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, recipient := range recipients {
		if _, dup := seen[recipient.ApplicantID]; dup {
			continue
		}
		seen[recipient.ApplicantID] = struct{}{}

		row, ok := byApplicant[recipient.ApplicantID]
		if !ok {
			plan.fresh = append(plan.fresh, recipient)
			continue
		}
		switch {
		case row.Status == enums.AllotmentEmailFailed && row.RetryCount < maxRetries:
			plan.reuse = append(plan.reuse, reusedRow{trackingID: row.ID, recipient: recipient})
		case row.Status == enums.AllotmentEmailFailed && includeExhausted:
			plan.reuse = append(plan.reuse, reusedRow{trackingID: row.ID, recipient: recipient, resetRetries: true})
		case row.Status == enums.AllotmentEmailFailed:
			plan.exhausted++
		default:
			plan.handled++
		}
	}
	return plan
}
