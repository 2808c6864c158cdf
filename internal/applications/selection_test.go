package applications

import (
	"context"
	"testing"

	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBulkDecide_ProcessesItemsIndependently(t *testing.T) {
	h := newHarness(t)
	admin := uuid.New()

	eligible := h.application(t, enums.ApplicationStatusEligible)
	onHold := h.application(t, enums.ApplicationStatusOnHold)
	draft := h.application(t, enums.ApplicationStatusDraft)
	rejected := h.application(t, enums.ApplicationStatusRejected)
	missing := uuid.New()
	remarks := "final merit list"

	result, err := h.svc.BulkDecide(context.Background(), BulkDecisionInput{
		ApplicationIDs: []uuid.UUID{eligible.ID, onHold.ID, draft.ID, missing, rejected.ID, eligible.ID},
		Target:         enums.ApplicationStatusSelected,
		AdminID:        admin,
		Remarks:        &remarks,
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{eligible.ID, onHold.ID}, result.Succeeded)
	require.Len(t, result.Failed, 3)

	reasons := map[uuid.UUID]pkgerrors.Code{}
	for _, failure := range result.Failed {
		require.NotEmpty(t, failure.Reason)
		reasons[failure.ApplicationID] = failure.Code
	}
	require.Equal(t, pkgerrors.CodeInvalidTransition, reasons[draft.ID])
	require.Equal(t, pkgerrors.CodeNotFound, reasons[missing])
	require.Equal(t, pkgerrors.CodeTerminalState, reasons[rejected.ID])

	require.Equal(t, enums.ApplicationStatusSelected, h.reload(t, eligible.ID).Status)
	require.Equal(t, enums.ApplicationStatusSelected, h.reload(t, onHold.ID).Status)
	require.EqualValues(t, 1, h.ledgerCount(t, eligible.ID))
	require.Zero(t, h.ledgerCount(t, draft.ID))

	history, err := h.svc.History(context.Background(), onHold.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, admin, *history[0].ChangedBy)
	require.Equal(t, remarks, *history[0].Remarks)
}

func TestBulkDecide_ValidatesRequest(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.BulkDecide(context.Background(), BulkDecisionInput{
		ApplicationIDs: []uuid.UUID{uuid.New()},
		Target:         enums.ApplicationStatusWithdrawn,
		AdminID:        uuid.New(),
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.BulkDecide(context.Background(), BulkDecisionInput{
		ApplicationIDs: []uuid.UUID{uuid.New()},
		Target:         enums.ApplicationStatusSelected,
	})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = h.svc.BulkDecide(context.Background(), BulkDecisionInput{
		Target:  enums.ApplicationStatusSelected,
		AdminID: uuid.New(),
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDecide_SingleOnHoldRoundTrip(t *testing.T) {
	h := newHarness(t)
	admin := uuid.New()
	app := h.application(t, enums.ApplicationStatusEligible)

	held, err := h.svc.Decide(context.Background(), DecisionInput{
		ApplicationID: app.ID,
		Target:        enums.ApplicationStatusOnHold,
		AdminID:       admin,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ApplicationStatusOnHold, held.Status)

	_, err = h.svc.Decide(context.Background(), DecisionInput{
		ApplicationID: app.ID,
		Target:        enums.ApplicationStatusOnHold,
		AdminID:       admin,
	})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	rejected, err := h.svc.Decide(context.Background(), DecisionInput{
		ApplicationID: app.ID,
		Target:        enums.ApplicationStatusRejected,
		AdminID:       admin,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ApplicationStatusRejected, rejected.Status)
	require.EqualValues(t, 2, h.ledgerCount(t, app.ID))
}
