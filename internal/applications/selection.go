package applications

import (
	"context"

	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxBulkDecisionSize caps how many applications one bulk request may touch.
const MaxBulkDecisionSize = 500

var (
	decisionSources = map[enums.ApplicationStatus]struct{}{
		enums.ApplicationStatusEligible: {},
		enums.ApplicationStatusOnHold:   {},
	}
	decisionTargets = map[enums.ApplicationStatus]struct{}{
		enums.ApplicationStatusOnHold:   {},
		enums.ApplicationStatusSelected: {},
		enums.ApplicationStatusRejected: {},
	}
)

// DecisionInput is one admin selection decision.
type DecisionInput struct {
	ApplicationID uuid.UUID
	Target        enums.ApplicationStatus
	AdminID       uuid.UUID
	Remarks       *string
}

// BulkDecisionInput applies the same decision to many applications.
type BulkDecisionInput struct {
	ApplicationIDs []uuid.UUID
	Target         enums.ApplicationStatus
	AdminID        uuid.UUID
	Remarks        *string
}

// BulkDecisionFailure explains why one item of a bulk decision was skipped.
type BulkDecisionFailure struct {
	ApplicationID uuid.UUID      `json:"application_id"`
	Code          pkgerrors.Code `json:"code"`
	Reason        string         `json:"reason"`
}

// BulkDecisionResult splits a bulk decision into applied and skipped items.
type BulkDecisionResult struct {
	Target    enums.ApplicationStatus `json:"target"`
	Succeeded []uuid.UUID             `json:"succeeded"`
	Failed    []BulkDecisionFailure   `json:"failed"`
}

func validateDecision(target enums.ApplicationStatus, adminID uuid.UUID) error {
	if _, ok := decisionTargets[target]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "decision must be ON_HOLD, SELECTED or REJECTED").
			WithDetails(map[string]any{"target": target})
	}
	if adminID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	return nil
}

// Decide applies a single selection decision atomically.
func (s *service) Decide(ctx context.Context, input DecisionInput) (*models.Application, error) {
	if input.ApplicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "application id required")
	}
	if err := validateDecision(input.Target, input.AdminID); err != nil {
		return nil, err
	}
	app, applied, err := s.decideOne(ctx, input)
	if err != nil {
		s.observeRejected(err)
		return nil, err
	}
	s.observe(applied)
	return app, nil
}

// BulkDecide processes every application in its own transaction so one
// failure never aborts the rest of the batch.
func (s *service) BulkDecide(ctx context.Context, input BulkDecisionInput) (*BulkDecisionResult, error) {
	if err := validateDecision(input.Target, input.AdminID); err != nil {
		return nil, err
	}
	ids := dedupe(input.ApplicationIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one application id required")
	}
	if len(ids) > MaxBulkDecisionSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many applications in one request").
			WithDetails(map[string]any{"max": MaxBulkDecisionSize})
	}

	result := &BulkDecisionResult{
		Target:    input.Target,
		Succeeded: []uuid.UUID{},
		Failed:    []BulkDecisionFailure{},
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if id == uuid.Nil {
			result.Failed = append(result.Failed, BulkDecisionFailure{
				ApplicationID: id,
				Code:          pkgerrors.CodeValidation,
				Reason:        "application id required",
			})
			continue
		}
		_, applied, err := s.decideOne(ctx, DecisionInput{
			ApplicationID: id,
			Target:        input.Target,
			AdminID:       input.AdminID,
			Remarks:       input.Remarks,
		})
		if err != nil {
			s.observeRejected(err)
			result.Failed = append(result.Failed, failureFor(id, err))
			continue
		}
		s.observe(applied)
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *service) decideOne(ctx context.Context, input DecisionInput) (*models.Application, transition, error) {
	var (
		app     *models.Application
		applied transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.load(ctx, tx, input.ApplicationID)
		if err != nil {
			return err
		}
		if IsTerminal(loaded.Status) {
			return pkgerrors.New(pkgerrors.CodeTerminalState, "application is in a terminal status").
				WithDetails(map[string]any{"status": loaded.Status})
		}
		if _, ok := decisionSources[loaded.Status]; !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only ELIGIBLE or ON_HOLD applications can be decided").
				WithDetails(map[string]any{"status": loaded.Status})
		}
		applied, err = s.apply(ctx, tx, loaded, transitionRequest{
			to:      input.Target,
			actor:   AdminActor(input.AdminID),
			remarks: input.Remarks,
		})
		if err != nil {
			return err
		}
		app = loaded
		return nil
	})
	return app, applied, err
}

func failureFor(id uuid.UUID, err error) BulkDecisionFailure {
	failure := BulkDecisionFailure{ApplicationID: id, Code: pkgerrors.CodeInternal, Reason: "unexpected error"}
	if typed := pkgerrors.As(err); typed != nil {
		failure.Code = typed.Code()
		failure.Reason = typed.Message()
	}
	return failure
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
