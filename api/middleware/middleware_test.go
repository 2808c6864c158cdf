package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/recruitment-backend/pkg/auth"
	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/types"
)

func TestRequestIDKeepsSaneInboundID(t *testing.T) {
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "lb-7f3a.01")
	h.ServeHTTP(w, r)
	require.Equal(t, "lb-7f3a.01", w.Header().Get("X-Request-Id"))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "bad id\nwith newline")
	h.ServeHTTP(w, r)
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	require.NoError(t, err)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", strings.Repeat("a", maxRequestIDBytes+1))
	h.ServeHTTP(w, r)
	require.Len(t, w.Header().Get("X-Request-Id"), 36)
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	h := Recoverer(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ledger exploded")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/v1/selection", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	require.NotContains(t, body.Error.Message, "ledger exploded")
	require.Contains(t, buf.String(), "ledger exploded")
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingRecordsStatusAndBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	h := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/admin/v1/posts", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "request.complete", entry["message"])
	require.EqualValues(t, http.StatusAccepted, entry["status"])
	require.EqualValues(t, 6, entry["bytes"])
}

func TestAdminAuth(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret", JWTIssuer: "recruitment-auth"}
	adminID := uuid.New()

	var seen uuid.UUID
	h := AdminAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := RequireAdminID(r.Context())
		require.NoError(t, err)
		seen = id
	}))

	mint := func(role string) string {
		token, err := pkgAuth.MintAdminToken(cfg, time.Now(), time.Hour, pkgAuth.AdminTokenPayload{AdminID: adminID, Role: role})
		require.NoError(t, err)
		return token
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+mint(pkgAuth.RoleAdmin))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, adminID, seen)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+mint("APPLICANT"))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApplicantAuth(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret", JWTIssuer: "recruitment-auth"}
	applicantID := uuid.New()

	var seen uuid.UUID
	h := ApplicantAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := RequireApplicantID(r.Context())
		require.NoError(t, err)
		seen = id
		_, err = RequireAdminID(r.Context())
		require.Error(t, err)
	}))

	mint := func(role string) string {
		token, err := pkgAuth.MintAdminToken(cfg, time.Now(), time.Hour, pkgAuth.AdminTokenPayload{AdminID: applicantID, Role: role})
		require.NoError(t, err)
		return token
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+mint(pkgAuth.RoleApplicant))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, applicantID, seen)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+mint(pkgAuth.RoleAdmin))
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminIDRejectsGarbage(t *testing.T) {
	_, err := RequireAdminID(WithAdmin(context.Background(), "not-a-uuid", pkgAuth.RoleAdmin))
	require.Error(t, err)
}

func TestRequireApplicantIDNeedsIdentity(t *testing.T) {
	_, err := RequireApplicantID(context.Background())
	require.Error(t, err)
	_, err = RequireApplicantID(WithApplicant(context.Background(), "not-a-uuid"))
	require.Error(t, err)
}
