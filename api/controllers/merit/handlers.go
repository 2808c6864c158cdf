package merit

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/recruitment-backend/api/middleware"
	"github.com/angelmondragon/recruitment-backend/api/responses"
	"github.com/angelmondragon/recruitment-backend/api/validators"
	meritsvc "github.com/angelmondragon/recruitment-backend/internal/merit"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

type snapshotRequest struct {
	DistrictID *uuid.UUID `json:"district_id,omitempty"`
}

// Rank returns one page of the live ranking for a post.
func Rank(svc meritsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := validators.ParseUUIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		districtID, err := validators.ParseOptionalUUIDQuery(r, "district_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPostID(ctx, postID.String())
		}
		list, err := svc.Rank(ctx, meritsvc.RankInput{
			PostID:     postID,
			DistrictID: districtID,
			Page:       page.Page,
			Limit:      page.Limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Snapshot persists the current ranking of a post as a merit list.
func Snapshot(svc meritsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		input := meritsvc.SnapshotInput{PostID: postID, AdminID: adminID}
		if r.ContentLength != 0 {
			var req snapshotRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.DistrictID = req.DistrictID
		}

		result, err := svc.Snapshot(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
