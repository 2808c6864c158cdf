package allotments

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultMaxRetries is the retry ceiling used when none is configured.
const DefaultMaxRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the admin side of allotment letter distribution.
type Service interface {
	Schedule(ctx context.Context, input ScheduleInput) (*ScheduleResult, error)
	Cancel(ctx context.Context, input CancelInput) (*models.AllotmentEmailSchedule, error)
	Retry(ctx context.Context, input RetryInput) (*RetryResult, error)
	GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*ScheduleView, error)
	ListSchedules(ctx context.Context, postID uuid.UUID, params pagination.Params) (*ScheduleList, error)
	ListTracking(ctx context.Context, input TrackingQuery) (*TrackingList, error)
}

// ScheduleView is a schedule with live counts of its tracking rows.
type ScheduleView struct {
	Schedule models.AllotmentEmailSchedule `json:"schedule"`
	Counts   TrackingCounts                `json:"counts"`
}

// ScheduleList is one page of a post's schedules, newest first.
type ScheduleList struct {
	Items      []models.AllotmentEmailSchedule `json:"items"`
	Pagination pagination.Meta                 `json:"pagination"`
}

// TrackingQuery pages through a schedule's tracking rows.
type TrackingQuery struct {
	ScheduleID uuid.UUID
	Status     *enums.AllotmentEmailStatus
	Page       int
	Limit      int
}

// TrackingList is one page of tracking rows.
type TrackingList struct {
	Items      []models.AllotmentEmailTracking `json:"items"`
	Pagination pagination.Meta                 `json:"pagination"`
}

// ServiceParams wires the allotment service.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	MaxRetries int
	Now        func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	maxRetries int
	now        func() time.Time
}

// NewService validates dependencies and returns the allotment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("allotment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, tx: params.Tx, maxRetries: maxRetries, now: now}, nil
}

func (s *service) GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*ScheduleView, error) {
	if scheduleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule id required")
	}
	schedule, err := s.repo.FindSchedule(ctx, scheduleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load schedule")
	}
	if schedule == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
	}
	counts, err := s.repo.CountTracking(ctx, scheduleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tracking")
	}
	return &ScheduleView{Schedule: *schedule, Counts: counts}, nil
}

func (s *service) ListSchedules(ctx context.Context, postID uuid.UUID, params pagination.Params) (*ScheduleList, error) {
	if postID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id required")
	}
	items, total, err := s.repo.ListSchedulesByPost(ctx, postID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schedules")
	}
	if items == nil {
		items = []models.AllotmentEmailSchedule{}
	}
	return &ScheduleList{Items: items, Pagination: pagination.NewMeta(params, total)}, nil
}

func (s *service) ListTracking(ctx context.Context, input TrackingQuery) (*TrackingList, error) {
	if input.ScheduleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule id required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tracking status")
	}
	params := pagination.Params{Page: input.Page, Limit: input.Limit}
	items, total, err := s.repo.ListTracking(ctx, input.ScheduleID, input.Status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking")
	}
	if items == nil {
		items = []models.AllotmentEmailTracking{}
	}
	return &TrackingList{Items: items, Pagination: pagination.NewMeta(params, total)}, nil
}
