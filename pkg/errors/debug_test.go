package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestDumpCollectsChainAndCode(t *testing.T) {
	base := fmt.Errorf("load application: %w", New(CodeNotFound, "application not found"))
	d := Dump(base)

	require.Equal(t, CodeNotFound, d.Code)
	require.Len(t, d.Chain, 2)
	require.Equal(t, base.Error(), d.TopMessage)

	fields := d.LogFields()
	require.Equal(t, CodeNotFound, fields["error_code"])
	require.NotContains(t, fields, "db_code")
}

func TestDumpExtractsDriverFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_allotment_email_tracking_schedule_application", TableName: "allotment_email_tracking"}
	d := Dump(Wrap(CodeConflict, pgErr, "tracking row exists"))
	require.Equal(t, "23505", d.DB.Code)
	require.Equal(t, "allotment_email_tracking", d.DB.Table)
	require.Equal(t, "23505", d.LogFields()["db_code"])

	pqErr := &pq.Error{Code: "23503", Constraint: "fk_applications_post"}
	d = Dump(fmt.Errorf("insert: %w", pqErr))
	require.Equal(t, "23503", d.DB.Code)
	require.Equal(t, "fk_applications_post", d.DB.Constraint)
}

func TestDumpNil(t *testing.T) {
	require.Equal(t, ErrorDump{}, Dump(nil))
}
