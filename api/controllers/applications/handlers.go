package applications

import (
	"net/http"

	"github.com/angelmondragon/recruitment-backend/api/middleware"
	"github.com/angelmondragon/recruitment-backend/api/responses"
	"github.com/angelmondragon/recruitment-backend/api/validators"
	appsvc "github.com/angelmondragon/recruitment-backend/internal/applications"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

// Get returns a single application.
func Get(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		app, err := svc.Get(r.Context(), applicationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// History returns the status ledger of an application, oldest entry first.
func History(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.History(r.Context(), applicationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}

// ChangeStatus moves an application along the transition table on behalf of the admin.
func ChangeStatus(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := middleware.RequireAdminID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req changeStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus("status", req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithApplicationID(ctx, applicationID.String())
		}
		app, err := svc.ChangeStatus(ctx, appsvc.ChangeStatusInput{
			ApplicationID: applicationID,
			NewStatus:     status,
			Actor:         appsvc.AdminActor(adminID),
			Remarks:       validators.Remarks(req.Remarks),
			Metadata:      req.Metadata,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// Submit locks a DRAFT application using the eligibility verdict in the body.
func Submit(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := middleware.RequireAdminID(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req submitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := appsvc.SubmitInput{
			ApplicationID: applicationID,
			Verdict:       req.Verdict,
		}
		if req.ApplicantID != nil {
			input.ApplicantID = *req.ApplicantID
		}

		app, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// Decide applies one selection decision.
func Decide(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := middleware.RequireAdminID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req decisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := parseStatus("target", req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.Decide(r.Context(), appsvc.DecisionInput{
			ApplicationID: applicationID,
			Target:        target,
			AdminID:       adminID,
			Remarks:       validators.Remarks(req.Remarks),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// BulkDecide applies the same decision to many applications. Per-item
// failures are reported in the body; the request itself still succeeds.
func BulkDecide(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := middleware.RequireAdminID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := parseStatus("target", req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkDecide(r.Context(), appsvc.BulkDecisionInput{
			ApplicationIDs: req.ApplicationIDs,
			Target:         target,
			AdminID:        adminID,
			Remarks:        validators.Remarks(req.Remarks),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
