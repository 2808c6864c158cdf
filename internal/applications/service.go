package applications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/recruitment-backend/internal/eligibility"
	"github.com/angelmondragon/recruitment-backend/internal/ledger"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the application status machine.
type Service interface {
	Get(ctx context.Context, applicationID uuid.UUID) (*models.Application, error)
	History(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusHistory, error)
	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*models.Application, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.Application, error)
	EnsureEditable(ctx context.Context, applicationID, applicantID uuid.UUID) error
	Submit(ctx context.Context, input SubmitInput) (*models.Application, error)
	Decide(ctx context.Context, input DecisionInput) (*models.Application, error)
	BulkDecide(ctx context.Context, input BulkDecisionInput) (*BulkDecisionResult, error)
}

// Actor identifies who requested a status change. ID is empty for SYSTEM.
type Actor struct {
	ID   uuid.UUID
	Type enums.ActorType
}

// SystemActor is used for transitions the platform performs on its own.
func SystemActor() Actor {
	return Actor{Type: enums.ActorTypeSystem}
}

// AdminActor wraps an admin id.
func AdminActor(id uuid.UUID) Actor {
	return Actor{ID: id, Type: enums.ActorTypeAdmin}
}

// ApplicantActor wraps an applicant id.
func ApplicantActor(id uuid.UUID) Actor {
	return Actor{ID: id, Type: enums.ActorTypeApplicant}
}

func (a Actor) changedBy() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

// ChangeStatusInput requests a single status change.
type ChangeStatusInput struct {
	ApplicationID uuid.UUID
	NewStatus     enums.ApplicationStatus
	Actor         Actor
	Remarks       *string
	Metadata      json.RawMessage
	// BypassTransitionTable skips the edge check for trusted SYSTEM callers.
	// Terminal statuses stay closed regardless.
	BypassTransitionTable bool
}

// WithdrawInput is an applicant pulling their own application.
type WithdrawInput struct {
	ApplicationID uuid.UUID
	ApplicantID   uuid.UUID
	Remarks       *string
}

// ServiceParams groups the collaborators of the application service.
type ServiceParams struct {
	Repo        Repository
	Ledger      ledger.Service
	Eligibility eligibility.Repository
	Tx          txRunner
	Metrics     *metrics.ApplicationMetrics
	Now         func() time.Time
}

type service struct {
	repo        Repository
	ledger      ledger.Service
	eligibility eligibility.Repository
	tx          txRunner
	metrics     *metrics.ApplicationMetrics
	now         func() time.Time
}

// NewService builds the application service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("applications repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Eligibility == nil {
		return nil, fmt.Errorf("eligibility repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		ledger:      params.Ledger,
		eligibility: params.Eligibility,
		tx:          params.Tx,
		metrics:     params.Metrics,
		now:         now,
	}, nil
}

func (s *service) Get(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	if applicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "application id required")
	}
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	if app == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
	}
	return app, nil
}

func (s *service) History(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationStatusHistory, error) {
	if _, err := s.Get(ctx, applicationID); err != nil {
		return nil, err
	}
	entries, err := s.ledger.History(ctx, applicationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	return entries, nil
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*models.Application, error) {
	if input.ApplicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "application id required")
	}
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if input.BypassTransitionTable && input.Actor.Type != enums.ActorTypeSystem {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only system transitions may bypass the transition table")
	}

	var (
		app     *models.Application
		applied transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.load(ctx, tx, input.ApplicationID)
		if err != nil {
			return err
		}
		applied, err = s.apply(ctx, tx, loaded, transitionRequest{
			to:       input.NewStatus,
			actor:    input.Actor,
			remarks:  input.Remarks,
			metadata: input.Metadata,
			bypass:   input.BypassTransitionTable,
		})
		if err != nil {
			return err
		}
		app = loaded
		return nil
	})
	if err != nil {
		s.observeRejected(err)
		return nil, err
	}
	s.observe(applied)
	return app, nil
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.Application, error) {
	if input.ApplicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "application id required")
	}
	if input.ApplicantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "applicant identity missing")
	}

	var (
		app     *models.Application
		applied transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.load(ctx, tx, input.ApplicationID)
		if err != nil {
			return err
		}
		if loaded.ApplicantID != input.ApplicantID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "application does not belong to applicant")
		}
		applied, err = s.apply(ctx, tx, loaded, transitionRequest{
			to:      enums.ApplicationStatusWithdrawn,
			actor:   ApplicantActor(input.ApplicantID),
			remarks: input.Remarks,
		})
		if err != nil {
			return err
		}
		app = loaded
		return nil
	})
	if err != nil {
		s.observeRejected(err)
		return nil, err
	}
	s.observe(applied)
	return app, nil
}

// EnsureEditable fails once an application is locked, guarding applicant
// edits to personal, education and experience records. A non-nil
// applicantID must own the application.
func (s *service) EnsureEditable(ctx context.Context, applicationID, applicantID uuid.UUID) error {
	app, err := s.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if applicantID != uuid.Nil && app.ApplicantID != applicantID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "application does not belong to applicant")
	}
	if app.IsLocked {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "application is locked after submission").
			WithDetails(map[string]any{"status": app.Status})
	}
	return nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Application, error) {
	app, err := s.repo.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	if app == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
	}
	return app, nil
}

type transitionRequest struct {
	to       enums.ApplicationStatus
	actor    Actor
	remarks  *string
	metadata json.RawMessage
	bypass   bool
	// extra column updates written in the same statement as the status
	extra map[string]any
}

type transition struct {
	from enums.ApplicationStatus
	to   enums.ApplicationStatus
}

// apply validates and performs one transition on app inside tx: a
// conditional status update followed by exactly one ledger row. app is
// updated in place on success.
func (s *service) apply(ctx context.Context, tx *gorm.DB, app *models.Application, req transitionRequest) (transition, error) {
	from := app.Status
	details := map[string]any{"from": from, "to": req.to}

	if !req.to.IsValid() {
		return transition{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").WithDetails(details)
	}
	if IsTerminal(from) {
		return transition{}, pkgerrors.New(pkgerrors.CodeTerminalState,
			fmt.Sprintf("application is %s and cannot change status", from)).WithDetails(details)
	}
	if !CanTransition(from, req.to) && !req.bypass {
		details["allowed"] = AllowedFrom(from)
		return transition{}, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("transition %s -> %s is not allowed", from, req.to)).WithDetails(details)
	}

	now := s.now().UTC()
	locked := app.IsLocked || IsLocking(req.to)
	updates := map[string]any{
		"status":     req.to,
		"is_locked":  locked,
		"updated_at": now,
	}
	var selection *enums.ApplicationStatus
	if isSelectionStatus(req.to) {
		target := req.to
		selection = &target
		updates["selection_status"] = target
	} else if app.SelectionStatus != nil {
		// leaving the selection band drops the mirrored value
		updates["selection_status"] = nil
	}
	for column, value := range req.extra {
		updates[column] = value
	}

	rows, err := s.repo.WithTx(tx).UpdateIfStatus(ctx, app.ID, from, updates)
	if err != nil {
		return transition{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update application status")
	}
	if rows == 0 {
		return transition{}, pkgerrors.New(pkgerrors.CodeStateConflict, "application status changed concurrently").WithDetails(details)
	}

	oldStatus := from
	if _, err := s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
		ApplicationID: app.ID,
		OldStatus:     &oldStatus,
		NewStatus:     req.to,
		ChangedBy:     req.actor.changedBy(),
		ActorType:     req.actor.Type,
		Remarks:       req.remarks,
		Metadata:      req.metadata,
	}); err != nil {
		return transition{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	app.Status = req.to
	app.IsLocked = locked
	app.UpdatedAt = now
	app.SelectionStatus = selection
	return transition{from: from, to: req.to}, nil
}

func (s *service) observe(applied ...transition) {
	for _, t := range applied {
		if t.to == "" {
			continue
		}
		s.metrics.IncTransition(string(t.from), string(t.to))
	}
}

func (s *service) observeRejected(err error) {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeInvalidTransition, pkgerrors.CodeTerminalState, pkgerrors.CodeNotSubmittable:
			s.metrics.IncRejected(string(typed.Code()))
		}
	}
}

func validateActor(actor Actor) error {
	if !actor.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid actor type")
	}
	if actor.Type != enums.ActorTypeSystem && actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	return nil
}
