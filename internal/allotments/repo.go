package allotments

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/angelmondragon/recruitment-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipient is a SELECTED application whose applicant has an e-mail address.
type Recipient struct {
	ApplicationID uuid.UUID
	ApplicationNo string
	ApplicantID   uuid.UUID
	FullName      string
	Email         string
}

// PendingDelivery is a PENDING tracking row plus what the letter needs.
type PendingDelivery struct {
	Tracking      models.AllotmentEmailTracking
	FullName      string
	ApplicationNo string
}

// TrackingCounts aggregates tracking rows of one schedule by status.
type TrackingCounts struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Bounced int `json:"bounced"`
}

// Total is the number of rows counted.
func (c TrackingCounts) Total() int {
	return c.Pending + c.Sent + c.Failed + c.Bounced
}

// Repository defines persistence for allotment schedules and tracking rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindPost(ctx context.Context, postID uuid.UUID) (*models.Post, error)
	FindUpload(ctx context.Context, uploadID uuid.UUID) (*models.AllotmentUpload, error)
	ListSelectedRecipients(ctx context.Context, postID uuid.UUID) ([]Recipient, error)
	ListTrackingByPost(ctx context.Context, postID uuid.UUID) ([]models.AllotmentEmailTracking, error)

	HasScheduled(ctx context.Context, postID uuid.UUID, excludeScheduleID uuid.UUID) (bool, error)
	CreateSchedule(ctx context.Context, schedule *models.AllotmentEmailSchedule) error
	FindSchedule(ctx context.Context, id uuid.UUID) (*models.AllotmentEmailSchedule, error)
	ListDueSchedules(ctx context.Context, now time.Time) ([]models.AllotmentEmailSchedule, error)
	ListSchedulesByPost(ctx context.Context, postID uuid.UUID, params pagination.Params) ([]models.AllotmentEmailSchedule, int, error)
	UpdateScheduleIfStatus(ctx context.Context, id uuid.UUID, expected enums.AllotmentScheduleStatus, updates map[string]any) (int64, error)
	ListStaleProcessing(ctx context.Context, startedBefore time.Time) ([]models.AllotmentEmailSchedule, error)

	CreateTracking(ctx context.Context, rows []models.AllotmentEmailTracking) error
	ReassignTracking(ctx context.Context, trackingID, scheduleID uuid.UUID, recipient Recipient, resetRetries bool, now time.Time) error
	ListPendingDeliveries(ctx context.Context, scheduleID uuid.UUID) ([]PendingDelivery, error)
	ListTracking(ctx context.Context, scheduleID uuid.UUID, status *enums.AllotmentEmailStatus, params pagination.Params) ([]models.AllotmentEmailTracking, int, error)
	UpdateTrackingIfStatus(ctx context.Context, id uuid.UUID, expected enums.AllotmentEmailStatus, updates map[string]any) (int64, error)
	CountTracking(ctx context.Context, scheduleID uuid.UUID) (TrackingCounts, error)
	FailPendingTracking(ctx context.Context, scheduleID uuid.UUID, reason string, now time.Time) (int64, error)
	ResetRetryableTracking(ctx context.Context, scheduleID uuid.UUID, maxRetries int, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an allotment repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Scopes(models.ActiveOnly("")).Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) FindUpload(ctx context.Context, uploadID uuid.UUID) (*models.AllotmentUpload, error) {
	var upload models.AllotmentUpload
	err := r.db.WithContext(ctx).Scopes(models.ActiveOnly("")).Where("id = ?", uploadID).First(&upload).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *repository) ListSelectedRecipients(ctx context.Context, postID uuid.UUID) ([]Recipient, error) {
	var rows []Recipient
	err := r.db.WithContext(ctx).
		Table("applications AS a").
		Select("a.id AS application_id, a.application_no, a.applicant_id, ap.full_name, ap.email").
		Joins("JOIN applicants AS ap ON ap.id = a.applicant_id").
		Where("a.post_id = ? AND a.status = ?", postID, enums.ApplicationStatusSelected).
		Where("a.is_active = ? AND ap.is_active = ?", true, true).
		Where("ap.email IS NOT NULL AND ap.email <> ''").
		Order("a.application_no ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListTrackingByPost(ctx context.Context, postID uuid.UUID) ([]models.AllotmentEmailTracking, error) {
	var rows []models.AllotmentEmailTracking
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) HasScheduled(ctx context.Context, postID uuid.UUID, excludeScheduleID uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailSchedule{}).
		Where("post_id = ? AND status = ?", postID, enums.AllotmentScheduleScheduled)
	if excludeScheduleID != uuid.Nil {
		q = q.Where("id <> ?", excludeScheduleID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateSchedule(ctx context.Context, schedule *models.AllotmentEmailSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *repository) FindSchedule(ctx context.Context, id uuid.UUID) (*models.AllotmentEmailSchedule, error) {
	var schedule models.AllotmentEmailSchedule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListDueSchedules returns SCHEDULED batches whose date has passed, oldest first.
func (r *repository) ListDueSchedules(ctx context.Context, now time.Time) ([]models.AllotmentEmailSchedule, error) {
	var schedules []models.AllotmentEmailSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_date <= ?", enums.AllotmentScheduleScheduled, now.UTC()).
		Order("scheduled_date ASC").
		Order("created_at ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repository) ListSchedulesByPost(ctx context.Context, postID uuid.UUID, params pagination.Params) ([]models.AllotmentEmailSchedule, int, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.AllotmentEmailSchedule{}).Where("post_id = ?", postID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	n := params.Normalize()
	var schedules []models.AllotmentEmailSchedule
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(n.Limit).
		Offset(params.Offset()).
		Find(&schedules).Error
	if err != nil {
		return nil, 0, err
	}
	return schedules, int(total), nil
}

func (r *repository) UpdateScheduleIfStatus(ctx context.Context, id uuid.UUID, expected enums.AllotmentScheduleStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailSchedule{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ListStaleProcessing returns batches stuck in PROCESSING since before
// startedBefore, oldest first.
func (r *repository) ListStaleProcessing(ctx context.Context, startedBefore time.Time) ([]models.AllotmentEmailSchedule, error) {
	var rows []models.AllotmentEmailSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", enums.AllotmentScheduleProcessing, startedBefore.UTC()).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateTracking(ctx context.Context, rows []models.AllotmentEmailTracking) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, 200).Error
}

// ReassignTracking moves a FAILED row onto a new schedule as PENDING. The
// retry count is kept so the retry ceiling still applies, unless
// resetRetries starts it over.
func (r *repository) ReassignTracking(ctx context.Context, trackingID, scheduleID uuid.UUID, recipient Recipient, resetRetries bool, now time.Time) error {
	updates := map[string]any{
		"schedule_id":    scheduleID,
		"application_id": recipient.ApplicationID,
		"email":          recipient.Email,
		"status":         enums.AllotmentEmailPending,
		"error_message":  nil,
		"sent_at":        nil,
		"updated_at":     now.UTC(),
	}
	if resetRetries {
		updates["retry_count"] = 0
	}
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailTracking{}).
		Where("id = ? AND status = ?", trackingID, enums.AllotmentEmailFailed).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errTrackingMoved
	}
	return nil
}

func (r *repository) ListPendingDeliveries(ctx context.Context, scheduleID uuid.UUID) ([]PendingDelivery, error) {
	var tracking []models.AllotmentEmailTracking
	if err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND status = ?", scheduleID, enums.AllotmentEmailPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&tracking).Error; err != nil {
		return nil, err
	}
	if len(tracking) == 0 {
		return []PendingDelivery{}, nil
	}

	applicantIDs := make([]uuid.UUID, 0, len(tracking))
	applicationIDs := make([]uuid.UUID, 0, len(tracking))
	for _, row := range tracking {
		applicantIDs = append(applicantIDs, row.ApplicantID)
		applicationIDs = append(applicationIDs, row.ApplicationID)
	}
	var applicants []models.Applicant
	if err := r.db.WithContext(ctx).Where("id IN ?", applicantIDs).Find(&applicants).Error; err != nil {
		return nil, err
	}
	var apps []models.Application
	if err := r.db.WithContext(ctx).Where("id IN ?", applicationIDs).Find(&apps).Error; err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(applicants))
	for _, a := range applicants {
		names[a.ID] = a.FullName
	}
	numbers := make(map[uuid.UUID]string, len(apps))
	for _, a := range apps {
		numbers[a.ID] = a.ApplicationNo
	}

	out := make([]PendingDelivery, 0, len(tracking))
	for _, row := range tracking {
		out = append(out, PendingDelivery{
			Tracking:      row,
			FullName:      names[row.ApplicantID],
			ApplicationNo: numbers[row.ApplicationID],
		})
	}
	return out, nil
}

func (r *repository) ListTracking(ctx context.Context, scheduleID uuid.UUID, status *enums.AllotmentEmailStatus, params pagination.Params) ([]models.AllotmentEmailTracking, int, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("schedule_id = ?", scheduleID)
		if status != nil {
			db = db.Where("status = ?", *status)
		}
		return db
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.AllotmentEmailTracking{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	n := params.Normalize()
	var rows []models.AllotmentEmailTracking
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at ASC").
		Order("id ASC").
		Limit(n.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, int(total), nil
}

func (r *repository) UpdateTrackingIfStatus(ctx context.Context, id uuid.UUID, expected enums.AllotmentEmailStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailTracking{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CountTracking(ctx context.Context, scheduleID uuid.UUID) (TrackingCounts, error) {
	var rows []struct {
		Status enums.AllotmentEmailStatus
		Total  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailTracking{}).
		Select("status, COUNT(*) AS total").
		Where("schedule_id = ?", scheduleID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return TrackingCounts{}, err
	}
	var counts TrackingCounts
	for _, row := range rows {
		switch row.Status {
		case enums.AllotmentEmailPending:
			counts.Pending = row.Total
		case enums.AllotmentEmailSent:
			counts.Sent = row.Total
		case enums.AllotmentEmailFailed:
			counts.Failed = row.Total
		case enums.AllotmentEmailBounced:
			counts.Bounced = row.Total
		}
	}
	return counts, nil
}

// FailPendingTracking flips a schedule's PENDING rows to FAILED without
// counting it as a delivery attempt.
func (r *repository) FailPendingTracking(ctx context.Context, scheduleID uuid.UUID, reason string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailTracking{}).
		Where("schedule_id = ? AND status = ?", scheduleID, enums.AllotmentEmailPending).
		Updates(map[string]any{
			"status":        enums.AllotmentEmailFailed,
			"error_message": reason,
			"updated_at":    now.UTC(),
		})
	return res.RowsAffected, res.Error
}

// ResetRetryableTracking moves FAILED rows under the retry ceiling back to PENDING.
func (r *repository) ResetRetryableTracking(ctx context.Context, scheduleID uuid.UUID, maxRetries int, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentEmailTracking{}).
		Where("schedule_id = ? AND status = ? AND retry_count < ?", scheduleID, enums.AllotmentEmailFailed, maxRetries).
		Updates(map[string]any{
			"status":        enums.AllotmentEmailPending,
			"error_message": nil,
			"updated_at":    now.UTC(),
		})
	return res.RowsAffected, res.Error
}
