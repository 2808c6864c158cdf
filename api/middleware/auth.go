package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/recruitment-backend/api/responses"
	pkgAuth "github.com/angelmondragon/recruitment-backend/pkg/auth"
	"github.com/angelmondragon/recruitment-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
)

// AdminAuth validates a bearer token minted by the auth service and seeds the
// request context with the admin identity. Non-admin roles are refused.
func AdminAuth(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearerAuth(cfg, logg, pkgAuth.RoleAdmin, func(ctx context.Context, subject string) context.Context {
		ctx = WithAdmin(ctx, subject, pkgAuth.RoleAdmin)
		if logg != nil {
			ctx = logg.WithAdminID(ctx, subject)
		}
		return ctx
	})
}

// ApplicantAuth is AdminAuth for the applicant API: only APPLICANT tokens
// pass and the subject becomes the applicant id.
func ApplicantAuth(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return bearerAuth(cfg, logg, pkgAuth.RoleApplicant, func(ctx context.Context, subject string) context.Context {
		ctx = WithApplicant(ctx, subject)
		if logg != nil {
			ctx = logg.WithField(ctx, "applicant_id", subject)
		}
		return ctx
	})
}

func bearerAuth(cfg config.AuthConfig, logg *logger.Logger, role string, seed func(ctx context.Context, subject string) context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAdminToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !strings.EqualFold(claims.Role, role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, strings.ToLower(role)+" role required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(seed(r.Context(), claims.Subject)))
		})
	}
}
