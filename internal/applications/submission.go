package applications

import (
	"context"
	"encoding/json"

	"github.com/angelmondragon/recruitment-backend/internal/eligibility"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmitInput carries the externally computed eligibility verdict for a
// DRAFT application. ApplicantID, when set, must own the application.
type SubmitInput struct {
	ApplicationID uuid.UUID
	ApplicantID   uuid.UUID
	Verdict       eligibility.Verdict
}

// Submit locks a DRAFT application and records its eligibility outcome.
// Both ledger rows, the lock and the eligibility snapshot commit together.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	if input.ApplicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "application id required")
	}
	if err := input.Verdict.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid eligibility verdict")
	}

	submitter := SystemActor()
	if input.ApplicantID != uuid.Nil {
		submitter = ApplicantActor(input.ApplicantID)
	}

	var (
		app     *models.Application
		applied []transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.load(ctx, tx, input.ApplicationID)
		if err != nil {
			return err
		}
		if input.ApplicantID != uuid.Nil && loaded.ApplicantID != input.ApplicantID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "application does not belong to applicant")
		}
		if loaded.Status != enums.ApplicationStatusDraft {
			return pkgerrors.New(pkgerrors.CodeNotSubmittable, "only draft applications can be submitted").
				WithDetails(map[string]any{"status": loaded.Status})
		}
		if !loaded.DeclarationAccepted {
			return pkgerrors.New(pkgerrors.CodeNotSubmittable, "declaration must be accepted before submission")
		}

		checkedAt := s.now().UTC()
		eligible := input.Verdict.IsEligible
		submitted, err := s.apply(ctx, tx, loaded, transitionRequest{
			to:    enums.ApplicationStatusSubmitted,
			actor: submitter,
			extra: map[string]any{
				"is_locked":              true,
				"system_eligibility":     eligible,
				"eligibility_checked_at": checkedAt,
				"submitted_at":           checkedAt,
			},
		})
		if err != nil {
			return err
		}
		loaded.IsLocked = true
		loaded.SystemEligibility = &eligible
		loaded.EligibilityCheckedAt = &checkedAt
		loaded.SubmittedAt = &checkedAt

		outcome := enums.ApplicationStatusNotEligible
		if eligible {
			outcome = enums.ApplicationStatusEligible
		}
		metadata, err := json.Marshal(map[string]any{"failed_checks": input.Verdict.FailedChecks()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode eligibility metadata")
		}
		decided, err := s.apply(ctx, tx, loaded, transitionRequest{
			to:       outcome,
			actor:    SystemActor(),
			metadata: metadata,
		})
		if err != nil {
			return err
		}

		result, err := eligibility.NewResult(loaded.ID, input.Verdict, checkedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build eligibility result")
		}
		if err := s.eligibility.WithTx(tx).Upsert(ctx, result); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store eligibility result")
		}

		app = loaded
		applied = []transition{submitted, decided}
		return nil
	})
	if err != nil {
		s.observeRejected(err)
		return nil, err
	}
	s.observe(applied...)
	return app, nil
}
