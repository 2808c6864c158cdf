package applications

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/recruitment-backend/internal/eligibility"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (h *harness) draft(t *testing.T, declared bool) *models.Application {
	t.Helper()
	app := h.application(t, enums.ApplicationStatusDraft)
	if declared {
		require.NoError(t, h.conn.Model(&models.Application{}).
			Where("id = ?", app.ID).
			Update("declaration_accepted", true).Error)
	}
	return app
}

func eligibleVerdict() eligibility.Verdict {
	return eligibility.Verdict{
		IsEligible: true,
		Checks: []eligibility.CheckResult{
			{Code: "AGE_LIMIT", Passed: true},
			{Code: "MIN_QUALIFICATION", Passed: true},
		},
	}
}

func TestSubmit_EligibleWritesTwoLedgerRowsAndSnapshot(t *testing.T) {
	h := newHarness(t)
	app := h.draft(t, true)

	got, err := h.svc.Submit(context.Background(), SubmitInput{
		ApplicationID: app.ID,
		ApplicantID:   app.ApplicantID,
		Verdict:       eligibleVerdict(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.ApplicationStatusEligible, got.Status)
	require.True(t, got.IsLocked)

	stored := h.reload(t, app.ID)
	require.Equal(t, enums.ApplicationStatusEligible, stored.Status)
	require.True(t, stored.IsLocked)
	require.NotNil(t, stored.SystemEligibility)
	require.True(t, *stored.SystemEligibility)
	require.NotNil(t, stored.EligibilityCheckedAt)
	require.NotNil(t, stored.SubmittedAt)

	history, err := h.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, enums.ApplicationStatusDraft, *history[0].OldStatus)
	require.Equal(t, enums.ApplicationStatusSubmitted, history[0].NewStatus)
	require.Equal(t, enums.ActorTypeApplicant, history[0].ChangedByType)
	require.Equal(t, enums.ApplicationStatusSubmitted, *history[1].OldStatus)
	require.Equal(t, enums.ApplicationStatusEligible, history[1].NewStatus)
	require.Equal(t, enums.ActorTypeSystem, history[1].ChangedByType)

	result, err := eligibility.NewRepository(h.conn).FindByApplicationID(context.Background(), app.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.IsEligible)
}

func TestSubmit_NotEligible(t *testing.T) {
	h := newHarness(t)
	app := h.draft(t, true)

	got, err := h.svc.Submit(context.Background(), SubmitInput{
		ApplicationID: app.ID,
		Verdict: eligibility.Verdict{
			IsEligible: false,
			Checks:     []eligibility.CheckResult{{Code: "AGE_LIMIT", Passed: false, Message: "above maximum age"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, enums.ApplicationStatusNotEligible, got.Status)
	require.True(t, IsTerminal(got.Status))

	history, err := h.svc.History(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, enums.ActorTypeSystem, history[0].ChangedByType)
	require.Contains(t, string(history[1].Metadata), "AGE_LIMIT")
}

func TestSubmit_RejectsNonDraftAndMissingDeclaration(t *testing.T) {
	h := newHarness(t)

	submitted := h.application(t, enums.ApplicationStatusSubmitted)
	_, err := h.svc.Submit(context.Background(), SubmitInput{ApplicationID: submitted.ID, Verdict: eligibleVerdict()})
	requireCode(t, err, pkgerrors.CodeNotSubmittable)
	require.Zero(t, h.ledgerCount(t, submitted.ID))

	undeclared := h.draft(t, false)
	_, err = h.svc.Submit(context.Background(), SubmitInput{ApplicationID: undeclared.ID, Verdict: eligibleVerdict()})
	requireCode(t, err, pkgerrors.CodeNotSubmittable)
	require.Zero(t, h.ledgerCount(t, undeclared.ID))
	require.False(t, h.reload(t, undeclared.ID).IsLocked)
}

func TestSubmit_RejectsContradictoryVerdict(t *testing.T) {
	h := newHarness(t)
	app := h.draft(t, true)
	_, err := h.svc.Submit(context.Background(), SubmitInput{
		ApplicationID: app.ID,
		Verdict: eligibility.Verdict{
			IsEligible: true,
			Checks:     []eligibility.CheckResult{{Code: "AGE_LIMIT", Passed: false}},
		},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

type failingEligibilityRepo struct{}

func (f failingEligibilityRepo) WithTx(tx *gorm.DB) eligibility.Repository { return f }

func (failingEligibilityRepo) Upsert(ctx context.Context, result *models.EligibilityResult) error {
	return errors.New("snapshot write failed")
}

func (failingEligibilityRepo) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*models.EligibilityResult, error) {
	return nil, nil
}

func TestSubmit_RollsBackEverythingOnSnapshotFailure(t *testing.T) {
	h := newHarness(t, func(p *ServiceParams) {
		p.Eligibility = failingEligibilityRepo{}
	})
	app := h.draft(t, true)

	_, err := h.svc.Submit(context.Background(), SubmitInput{ApplicationID: app.ID, Verdict: eligibleVerdict()})
	requireCode(t, err, pkgerrors.CodeDependency)

	stored := h.reload(t, app.ID)
	require.Equal(t, enums.ApplicationStatusDraft, stored.Status)
	require.False(t, stored.IsLocked)
	require.Nil(t, stored.SubmittedAt)
	require.Zero(t, h.ledgerCount(t, app.ID))
}
