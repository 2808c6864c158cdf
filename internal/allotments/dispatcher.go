package allotments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/mailer"
	"github.com/angelmondragon/recruitment-backend/pkg/metrics"
	"github.com/angelmondragon/recruitment-backend/pkg/storage"
)

const (
	defaultSendTimeout = 30 * time.Second
	maxErrorMessageLen = 500
	interruptedReason  = "dispatch interrupted"
)

// DispatcherParams wires the allotment dispatcher.
type DispatcherParams struct {
	Repo        Repository
	Tx          txRunner
	Sender      mailer.Sender
	Files       storage.Resolver
	Logger      *logger.Logger
	Metrics     *metrics.AllotmentMetrics
	SendTimeout time.Duration
	Now         func() time.Time
}

// Dispatcher sends the letters of due schedules, one schedule at a time.
type Dispatcher struct {
	repo        Repository
	tx          txRunner
	sender      mailer.Sender
	files       storage.Resolver
	logg        *logger.Logger
	metrics     *metrics.AllotmentMetrics
	sendTimeout time.Duration
	now         func() time.Time
}

// DispatchSummary aggregates one DispatchDue run.
type DispatchSummary struct {
	Schedules int
	Sent      int
	Failed    int
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("allotment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if params.Files == nil {
		return nil, fmt.Errorf("file resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		repo:        params.Repo,
		tx:          params.Tx,
		sender:      params.Sender,
		files:       params.Files,
		logg:        params.Logger,
		metrics:     params.Metrics,
		sendTimeout: timeout,
		now:         now,
	}, nil
}

// DispatchDue processes every SCHEDULED batch whose date has passed. A failing
// schedule does not stop the others; their errors are combined.
func (d *Dispatcher) DispatchDue(ctx context.Context) (DispatchSummary, error) {
	var summary DispatchSummary
	due, err := d.repo.ListDueSchedules(ctx, d.now())
	if err != nil {
		return summary, fmt.Errorf("list due schedules: %w", err)
	}

	var errs error
	for _, schedule := range due {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		run, err := d.processSchedule(ctx, schedule)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("schedule %s: %w", schedule.ID, err))
		}
		if run.claimed {
			summary.Schedules++
		}
		summary.Sent += run.sent
		summary.Failed += run.failed
	}
	return summary, errs
}

type scheduleRun struct {
	claimed bool
	sent    int
	failed  int
}

// letterSource is the resolved attachment shared by every recipient of a batch.
type letterSource struct {
	post   *models.Post
	upload *models.AllotmentUpload
	path   string
	reason string
}

func (d *Dispatcher) processSchedule(ctx context.Context, schedule models.AllotmentEmailSchedule) (scheduleRun, error) {
	var run scheduleRun
	ctx = d.logg.WithScheduleID(ctx, schedule.ID.String())
	ctx = d.logg.WithPostID(ctx, schedule.PostID.String())

	started := d.now().UTC()
	n, err := d.repo.UpdateScheduleIfStatus(ctx, schedule.ID, enums.AllotmentScheduleScheduled, map[string]any{
		"status":     enums.AllotmentScheduleProcessing,
		"started_at": started,
		"updated_at": started,
	})
	if err != nil {
		return run, fmt.Errorf("claim schedule: %w", err)
	}
	if n == 0 {
		d.logg.Info(ctx, "allotment schedule already claimed")
		return run, nil
	}
	run.claimed = true

	deliveries, err := d.repo.ListPendingDeliveries(ctx, schedule.ID)
	if err != nil {
		return run, multierr.Append(fmt.Errorf("list pending deliveries: %w", err), d.release(ctx, schedule))
	}
	source, err := d.loadLetterSource(ctx, schedule)
	if err != nil {
		return run, multierr.Append(err, d.release(ctx, schedule))
	}

	var errs error
	for _, delivery := range deliveries {
		if ctx.Err() != nil {
			// the remaining rows stay PENDING for the next run
			return run, multierr.Combine(errs, ctx.Err(), d.release(ctx, schedule))
		}
		sent, err := d.deliver(ctx, source, delivery)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if sent {
			run.sent++
		} else {
			run.failed++
		}
	}

	if err := d.finish(ctx, schedule.ID); err != nil {
		errs = multierr.Append(errs, err)
	}
	return run, errs
}

func (d *Dispatcher) loadLetterSource(ctx context.Context, schedule models.AllotmentEmailSchedule) (letterSource, error) {
	post, err := d.repo.FindPost(ctx, schedule.PostID)
	if err != nil {
		return letterSource{}, fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		// soft-deleted posts keep their code for the letter
		post = &models.Post{ID: schedule.PostID}
	}
	source := letterSource{post: post}

	upload, err := d.repo.FindUpload(ctx, schedule.UploadID)
	if err != nil {
		return letterSource{}, fmt.Errorf("load upload: %w", err)
	}
	if upload == nil {
		source.reason = "allotment letter upload not found"
		return source, nil
	}
	source.upload = upload
	path, err := d.files.Resolve(upload.FilePath)
	if err != nil {
		source.reason = fmt.Sprintf("allotment letter path invalid: %v", err)
		return source, nil
	}
	source.path = path
	return source, nil
}

// deliver sends one letter and records the outcome on its tracking row. The
// returned error is only set when the outcome could not be persisted.
func (d *Dispatcher) deliver(ctx context.Context, source letterSource, delivery PendingDelivery) (bool, error) {
	row := delivery.Tracking
	ctx = d.logg.WithApplicationID(ctx, row.ApplicationID.String())

	if source.reason != "" {
		return false, d.markFailed(ctx, row.ID, source.reason)
	}
	exists, err := d.files.Exists(ctx, source.upload.FilePath)
	if err != nil {
		return false, d.markFailed(ctx, row.ID, fmt.Sprintf("check allotment letter: %v", err))
	}
	if !exists {
		return false, d.markFailed(ctx, row.ID, "allotment letter file not found")
	}

	letter, err := RenderLetter(LetterData{
		ApplicantName: delivery.FullName,
		ApplicationNo: delivery.ApplicationNo,
		PostCode:      source.post.Code,
		PostTitle:     source.post.Title,
	})
	if err != nil {
		return false, d.markFailed(ctx, row.ID, err.Error())
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	start := time.Now()
	result, err := d.sender.Send(sendCtx, mailer.Message{
		To:       row.Email,
		ToName:   delivery.FullName,
		Subject:  letter.Subject,
		HTMLBody: letter.HTMLBody,
		TextBody: letter.TextBody,
		Attachments: []mailer.Attachment{{
			Path:     source.path,
			Filename: attachmentName(source.post.Code, delivery.ApplicationNo, source.upload.FilePath),
		}},
	})
	cancel()
	d.metrics.ObserveSend(time.Since(start))
	if err != nil {
		d.logg.Warn(ctx, fmt.Sprintf("allotment e-mail failed: %v", err))
		return false, d.markFailed(ctx, row.ID, err.Error())
	}

	now := d.now().UTC()
	updates := map[string]any{
		"status":        enums.AllotmentEmailSent,
		"sent_at":       now,
		"error_message": nil,
		"updated_at":    now,
	}
	if result.MessageID != "" {
		updates["message_id"] = result.MessageID
	}
	if _, err := d.repo.UpdateTrackingIfStatus(ctx, row.ID, enums.AllotmentEmailPending, updates); err != nil {
		d.logg.Error(ctx, "allotment e-mail sent but not recorded", err)
		return true, fmt.Errorf("record sent tracking %s: %w", row.ID, err)
	}
	d.metrics.IncEmail("sent")
	return true, nil
}

func (d *Dispatcher) markFailed(ctx context.Context, trackingID uuid.UUID, reason string) error {
	d.metrics.IncEmail("failed")
	if len(reason) > maxErrorMessageLen {
		reason = reason[:maxErrorMessageLen]
	}
	now := d.now().UTC()
	_, err := d.repo.UpdateTrackingIfStatus(ctx, trackingID, enums.AllotmentEmailPending, map[string]any{
		"status":        enums.AllotmentEmailFailed,
		"error_message": reason,
		"retry_count":   gorm.Expr("retry_count + 1"),
		"updated_at":    now,
	})
	if err != nil {
		d.logg.Error(ctx, "failed to record allotment e-mail failure", err)
		return fmt.Errorf("record failed tracking %s: %w", trackingID, err)
	}
	return nil
}

// finish closes a PROCESSING schedule from its tracking rows: COMPLETED when
// at least one letter went out, FAILED otherwise.
func (d *Dispatcher) finish(ctx context.Context, scheduleID uuid.UUID) error {
	counts, err := d.repo.CountTracking(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("count tracking: %w", err)
	}
	status := enums.AllotmentScheduleFailed
	if counts.Sent > 0 {
		status = enums.AllotmentScheduleCompleted
	}
	now := d.now().UTC()
	_, err = d.repo.UpdateScheduleIfStatus(ctx, scheduleID, enums.AllotmentScheduleProcessing, map[string]any{
		"status":        status,
		"emails_sent":   counts.Sent,
		"emails_failed": counts.Failed + counts.Bounced,
		"completed_at":  now,
		"updated_at":    now,
	})
	if err != nil {
		return fmt.Errorf("finish schedule: %w", err)
	}
	d.metrics.IncScheduleFinished(string(status))
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"status":        status,
		"emails_sent":   counts.Sent,
		"emails_failed": counts.Failed + counts.Bounced,
	}), "allotment schedule finished")
	return nil
}

// release hands a claimed schedule back to SCHEDULED so a later run resumes
// it. If the post gained another SCHEDULED batch in the meantime the claim is
// closed as FAILED instead, keeping one SCHEDULED batch per post.
func (d *Dispatcher) release(ctx context.Context, schedule models.AllotmentEmailSchedule) error {
	ctx = context.WithoutCancel(ctx)
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		active, err := repo.HasScheduled(ctx, schedule.PostID, schedule.ID)
		if err != nil {
			return fmt.Errorf("check active schedules: %w", err)
		}
		if active {
			_, err := d.abandon(ctx, repo, schedule.ID)
			return err
		}
		now := d.now().UTC()
		_, err = repo.UpdateScheduleIfStatus(ctx, schedule.ID, enums.AllotmentScheduleProcessing, map[string]any{
			"status":     enums.AllotmentScheduleScheduled,
			"updated_at": now,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("release schedule: %w", err)
	}
	return nil
}

// abandon closes a PROCESSING schedule as FAILED and fails its PENDING rows
// without spending a retry, so Retry or a new batch can pick them up. It
// reports false when the schedule had already left PROCESSING.
func (d *Dispatcher) abandon(ctx context.Context, repo Repository, scheduleID uuid.UUID) (bool, error) {
	now := d.now().UTC()
	n, err := repo.UpdateScheduleIfStatus(ctx, scheduleID, enums.AllotmentScheduleProcessing, map[string]any{
		"status":       enums.AllotmentScheduleFailed,
		"completed_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return false, fmt.Errorf("fail schedule: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := repo.FailPendingTracking(ctx, scheduleID, interruptedReason, now); err != nil {
		return false, fmt.Errorf("fail pending tracking: %w", err)
	}
	counts, err := repo.CountTracking(ctx, scheduleID)
	if err != nil {
		return false, fmt.Errorf("count tracking: %w", err)
	}
	if _, err := repo.UpdateScheduleIfStatus(ctx, scheduleID, enums.AllotmentScheduleFailed, map[string]any{
		"emails_sent":   counts.Sent,
		"emails_failed": counts.Failed + counts.Bounced,
	}); err != nil {
		return false, fmt.Errorf("record schedule counts: %w", err)
	}
	d.metrics.IncScheduleFinished(string(enums.AllotmentScheduleFailed))
	return true, nil
}

// RecoverStale closes batches a crashed worker left in PROCESSING for longer
// than olderThan. They end FAILED with their undelivered rows failed, ready
// for an admin retry.
func (d *Dispatcher) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("stale threshold must be positive")
	}
	stale, err := d.repo.ListStaleProcessing(ctx, d.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("list stale schedules: %w", err)
	}

	var released int64
	var errs error
	for _, schedule := range stale {
		var closed bool
		err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			closed, err = d.abandon(ctx, d.repo.WithTx(tx), schedule.ID)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("schedule %s: %w", schedule.ID, err))
			continue
		}
		if closed {
			released++
		}
	}
	if released > 0 {
		d.logg.Warn(d.logg.WithField(ctx, "released", released), "failed stale allotment schedules")
	}
	return released, errs
}
