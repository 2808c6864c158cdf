package allotments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/pagination"
)

func TestCancelFailsPendingRowsAndFreesPost(t *testing.T) {
	h := newHarness(t)
	app := h.selected("first@example.test")
	first := h.schedule()
	ctx := context.Background()

	cancelled, err := h.svc.Cancel(ctx, CancelInput{ScheduleID: first.Schedule.ID, AdminID: h.admin})
	require.NoError(t, err)
	assert.Equal(t, enums.AllotmentScheduleCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, h.admin, *cancelled.CancelledBy)

	row := h.trackingFor(app.ApplicantID)
	assert.Equal(t, enums.AllotmentEmailFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, cancelledReason, *row.ErrorMessage)
	assert.Zero(t, row.RetryCount)

	_, err = h.svc.Cancel(ctx, CancelInput{ScheduleID: first.Schedule.ID, AdminID: h.admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	second := h.schedule()
	require.NotNil(t, second.Schedule)
	assert.Equal(t, 1, second.Reused)
	row = h.trackingFor(app.ApplicantID)
	assert.Equal(t, second.Schedule.ID, row.ScheduleID)
	assert.Equal(t, enums.AllotmentEmailPending, row.Status)
	assert.Nil(t, row.ErrorMessage)
}

func TestCancelRejectsFinishedSchedule(t *testing.T) {
	h := newHarness(t)
	h.writeLetter()
	h.selected("first@example.test")
	result := h.schedule()
	h.dispatch()

	_, err := h.svc.Cancel(context.Background(), CancelInput{ScheduleID: result.Schedule.ID, AdminID: h.admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = h.svc.Cancel(context.Background(), CancelInput{ScheduleID: uuid.New(), AdminID: h.admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRetryRequeuesFailuresUntilCeiling(t *testing.T) {
	h := newHarness(t)
	h.writeLetter()
	h.selected("good@example.test")
	bad := h.selected("bad@example.test")
	h.sender.failFor["bad@example.test"] = errSMTPRejected
	ctx := context.Background()

	result := h.schedule()
	h.dispatch()
	assert.Equal(t, 1, h.trackingFor(bad.ApplicantID).RetryCount)

	retried, err := h.svc.Retry(ctx, RetryInput{ScheduleID: result.Schedule.ID, AdminID: h.admin})
	require.NoError(t, err)
	assert.Equal(t, 1, retried.Requeued)
	assert.Equal(t, enums.AllotmentScheduleScheduled, retried.Schedule.Status)
	assert.Equal(t, enums.AllotmentEmailPending, h.trackingFor(bad.ApplicantID).Status)

	h.dispatch()
	row := h.trackingFor(bad.ApplicantID)
	assert.Equal(t, enums.AllotmentEmailFailed, row.Status)
	assert.Equal(t, testMaxRetries, row.RetryCount)
	assert.Equal(t, enums.AllotmentScheduleCompleted, h.loadSchedule(result.Schedule.ID).Status)

	_, err = h.svc.Retry(ctx, RetryInput{ScheduleID: result.Schedule.ID, AdminID: h.admin})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// exhausted rows are not picked up by a fresh batch either
	again := h.schedule()
	assert.True(t, again.NothingToDo)
	assert.Equal(t, 1, again.Exhausted)

	// the good address was mailed exactly once
	assert.Equal(t, []string{"good@example.test"}, h.sender.sentTo())
}

func TestRetryRejectsWhenPostHasScheduledBatch(t *testing.T) {
	h := newHarness(t)
	h.writeLetter()
	h.selected("bad@example.test")
	h.sender.failFor["bad@example.test"] = errSMTPRejected
	ctx := context.Background()

	first := h.schedule()
	h.dispatch()
	assert.Equal(t, enums.AllotmentScheduleFailed, h.loadSchedule(first.Schedule.ID).Status)

	h.selected("late@example.test")
	second := h.schedule()
	require.NotNil(t, second.Schedule)

	_, err := h.svc.Retry(ctx, RetryInput{ScheduleID: first.Schedule.ID, AdminID: h.admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeActiveScheduleConflict))

	_, err = h.svc.Retry(ctx, RetryInput{ScheduleID: second.Schedule.ID, AdminID: h.admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestScheduleViews(t *testing.T) {
	h := newHarness(t)
	h.writeLetter()
	h.selected("good@example.test")
	h.selected("bad@example.test")
	h.sender.failFor["bad@example.test"] = errSMTPRejected
	ctx := context.Background()

	result := h.schedule()
	h.dispatch()

	view, err := h.svc.GetSchedule(ctx, result.Schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, TrackingCounts{Sent: 1, Failed: 1}, view.Counts)
	assert.Equal(t, 2, view.Counts.Total())

	list, err := h.svc.ListSchedules(ctx, h.post.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Pagination.Total)

	failed := enums.AllotmentEmailFailed
	tracking, err := h.svc.ListTracking(ctx, TrackingQuery{ScheduleID: result.Schedule.ID, Status: &failed})
	require.NoError(t, err)
	require.Len(t, tracking.Items, 1)
	assert.Equal(t, "bad@example.test", tracking.Items[0].Email)

	bogus := enums.AllotmentEmailStatus("LOST")
	_, err = h.svc.ListTracking(ctx, TrackingQuery{ScheduleID: result.Schedule.ID, Status: &bogus})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.GetSchedule(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
