package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/recruitment-backend/internal/allotments"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

type allotmentDispatcher interface {
	DispatchDue(ctx context.Context) (allotments.DispatchSummary, error)
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// AllotmentDispatchJobParams wires the allotment dispatch job.
type AllotmentDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher allotmentDispatcher
	StaleAfter time.Duration
}

// NewAllotmentDispatchJob builds the job that releases stale batches and then
// sends every due allotment schedule.
func NewAllotmentDispatchJob(params AllotmentDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("allotment dispatcher required")
	}
	return &allotmentDispatchJob{
		logg:       params.Logger,
		dispatcher: params.Dispatcher,
		staleAfter: params.StaleAfter,
	}, nil
}

type allotmentDispatchJob struct {
	logg       *logger.Logger
	dispatcher allotmentDispatcher
	staleAfter time.Duration
}

func (j *allotmentDispatchJob) Name() string { return "allotment-dispatch" }

func (j *allotmentDispatchJob) Run(ctx context.Context) error {
	if j.staleAfter > 0 {
		if _, err := j.dispatcher.RecoverStale(ctx, j.staleAfter); err != nil {
			// a failed recovery must not block due schedules
			j.logg.Error(ctx, "stale schedule recovery failed", err)
		}
	}

	summary, err := j.dispatcher.DispatchDue(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"schedules": summary.Schedules,
		"sent":      summary.Sent,
		"failed":    summary.Failed,
	})
	if err != nil {
		return fmt.Errorf("allotment dispatch: %w", err)
	}
	if summary.Schedules == 0 {
		j.logg.Info(logCtx, "no allotment schedules due")
		return nil
	}
	j.logg.Info(logCtx, "allotment dispatch complete")
	return nil
}
