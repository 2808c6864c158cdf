package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/recruitment-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
)

type contextKey string

const (
	ctxAdminID     contextKey = "admin_id"
	ctxApplicantID contextKey = "applicant_id"
	ctxRole        contextKey = "actor_role"
)

func AdminIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithAdmin injects the verified admin identity, used by tests and the auth middleware.
func WithAdmin(ctx context.Context, adminID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	return context.WithValue(ctx, ctxRole, role)
}

// RequireAdminID parses the admin id seeded by AdminAuth.
func RequireAdminID(ctx context.Context) (uuid.UUID, error) {
	raw := AdminIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid admin identity")
	}
	return id, nil
}

// WithApplicant injects the verified applicant identity.
func WithApplicant(ctx context.Context, applicantID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxApplicantID, applicantID)
	return context.WithValue(ctx, ctxRole, pkgAuth.RoleApplicant)
}

// RequireApplicantID parses the applicant id seeded by ApplicantAuth.
func RequireApplicantID(ctx context.Context) (uuid.UUID, error) {
	var raw string
	if ctx != nil {
		raw, _ = ctx.Value(ctxApplicantID).(string)
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "applicant identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid applicant identity")
	}
	return id, nil
}
