package applications

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/recruitment-backend/internal/eligibility"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
)

type changeStatusRequest struct {
	Status   string          `json:"status" validate:"required,application_status"`
	Remarks  *string         `json:"remarks,omitempty" validate:"omitempty,max=1000"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type submitRequest struct {
	ApplicantID *uuid.UUID          `json:"applicant_id,omitempty"`
	Verdict     eligibility.Verdict `json:"verdict"`
}

type decisionRequest struct {
	Target  string  `json:"target" validate:"required,application_status"`
	Remarks *string `json:"remarks,omitempty" validate:"omitempty,max=1000"`
}

type bulkDecisionRequest struct {
	Target         string      `json:"target" validate:"required,application_status"`
	ApplicationIDs []uuid.UUID `json:"application_ids" validate:"required,min=1,max=500"`
	Remarks        *string     `json:"remarks,omitempty" validate:"omitempty,max=1000"`
}

func parseStatus(field, raw string) (enums.ApplicationStatus, error) {
	status, err := enums.ParseApplicationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown application status").
			WithDetails(map[string]any{"field": field, "value": raw})
	}
	return status, nil
}
