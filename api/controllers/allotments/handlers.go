package allotments

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/recruitment-backend/api/middleware"
	"github.com/angelmondragon/recruitment-backend/api/responses"
	"github.com/angelmondragon/recruitment-backend/api/validators"
	allotmentsvc "github.com/angelmondragon/recruitment-backend/internal/allotments"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

type scheduleRequest struct {
	UploadID    uuid.UUID  `json:"upload_id" validate:"required"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	// IncludeExhausted re-queues letters that hit the retry limit.
	IncludeExhausted bool `json:"include_exhausted"`
}

// Create queues allotment letters for every selected candidate of the post
// that does not already have one on record.
func Create(svc allotmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := middleware.RequireAdminID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req scheduleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := allotmentsvc.ScheduleInput{
			PostID:           postID,
			UploadID:         req.UploadID,
			AdminID:          adminID,
			IncludeExhausted: req.IncludeExhausted,
		}
		if req.ScheduledAt != nil {
			input.ScheduledAt = req.ScheduledAt.UTC()
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPostID(ctx, postID.String())
		}
		result, err := svc.Schedule(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.NothingToDo {
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListByPost pages through a post's schedules, newest first.
func ListByPost(svc allotmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := validators.ParseUUIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListSchedules(r.Context(), postID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Get returns a schedule with its delivery counts.
func Get(svc allotmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, err := validators.ParseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetSchedule(r.Context(), scheduleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ListTracking pages through the per-recipient rows of a schedule.
func ListTracking(svc allotmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, err := validators.ParseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := allotmentsvc.TrackingQuery{ScheduleID: scheduleID, Page: params.Page, Limit: params.Limit}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseAllotmentEmailStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			query.Status = &status
		}

		list, err := svc.ListTracking(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Cancel stops a schedule that has not started dispatching.
func Cancel(svc allotmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := middleware.RequireAdminID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scheduleID, err := validators.ParseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithScheduleID(ctx, scheduleID.String())
		}
		schedule, err := svc.Cancel(ctx, allotmentsvc.CancelInput{ScheduleID: scheduleID, AdminID: adminID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedule)
	}
}

// Retry requeues the failed letters of a finished schedule.
func Retry(svc allotmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := middleware.RequireAdminID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scheduleID, err := validators.ParseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithScheduleID(ctx, scheduleID.String())
		}
		result, err := svc.Retry(ctx, allotmentsvc.RetryInput{ScheduleID: scheduleID, AdminID: adminID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
