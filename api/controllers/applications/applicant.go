package applications

import (
	"net/http"

	"github.com/angelmondragon/recruitment-backend/api/middleware"
	"github.com/angelmondragon/recruitment-backend/api/responses"
	"github.com/angelmondragon/recruitment-backend/api/validators"
	appsvc "github.com/angelmondragon/recruitment-backend/internal/applications"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

type withdrawRequest struct {
	Remarks *string `json:"remarks,omitempty" validate:"omitempty,max=1000"`
}

// Withdraw lets the signed-in applicant pull their own application. The body
// is optional.
func Withdraw(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicantID, err := middleware.RequireApplicantID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req withdrawRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithApplicationID(ctx, applicationID.String())
		}
		app, err := svc.Withdraw(ctx, appsvc.WithdrawInput{
			ApplicationID: applicationID,
			ApplicantID:   applicantID,
			Remarks:       validators.Remarks(req.Remarks),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}

// Editable answers whether the applicant may still change the records behind
// an application. Locked applications return STATE_CONFLICT.
func Editable(svc appsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicantID, err := middleware.RequireApplicantID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applicationID, err := validators.ParseUUIDParam(r, "applicationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.EnsureEditable(r.Context(), applicationID, applicantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"application_id": applicationID, "editable": true})
	}
}
