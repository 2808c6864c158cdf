package merit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/recruitment-backend/api/middleware"
	meritsvc "github.com/angelmondragon/recruitment-backend/internal/merit"
	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
	"github.com/angelmondragon/recruitment-backend/pkg/pagination"
)

type stubService struct {
	rank     func(ctx context.Context, input meritsvc.RankInput) (*meritsvc.RankedList, error)
	snapshot func(ctx context.Context, input meritsvc.SnapshotInput) (*meritsvc.SnapshotResult, error)
}

func (s stubService) Rank(ctx context.Context, input meritsvc.RankInput) (*meritsvc.RankedList, error) {
	return s.rank(ctx, input)
}

func (s stubService) Snapshot(ctx context.Context, input meritsvc.SnapshotInput) (*meritsvc.SnapshotResult, error) {
	return s.snapshot(ctx, input)
}

func request(method, target, body string, postID string, admin bool) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("postId", postID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if admin {
		ctx = middleware.WithAdmin(ctx, uuid.NewString(), "ADMIN")
	}
	return req.WithContext(ctx)
}

func TestRankParsesQuery(t *testing.T) {
	postID := uuid.New()
	districtID := uuid.New()
	var got meritsvc.RankInput
	svc := stubService{rank: func(ctx context.Context, input meritsvc.RankInput) (*meritsvc.RankedList, error) {
		got = input
		return &meritsvc.RankedList{
			PostID:     input.PostID,
			Items:      []meritsvc.RankedCandidate{},
			Pagination: pagination.NewMeta(pagination.Params{Page: input.Page, Limit: input.Limit}, 0),
		}, nil
	}}

	w := httptest.NewRecorder()
	Rank(svc, nil)(w, request(http.MethodGet, "/?page=2&limit=10&district_id="+districtID.String(), "", postID.String(), true))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, postID, got.PostID)
	require.NotNil(t, got.DistrictID)
	require.Equal(t, districtID, *got.DistrictID)
	require.Equal(t, 2, got.Page)
	require.Equal(t, 10, got.Limit)
}

func TestRankDefaultsAndValidation(t *testing.T) {
	var got meritsvc.RankInput
	svc := stubService{rank: func(ctx context.Context, input meritsvc.RankInput) (*meritsvc.RankedList, error) {
		got = input
		return &meritsvc.RankedList{}, nil
	}}

	w := httptest.NewRecorder()
	Rank(svc, nil)(w, request(http.MethodGet, "/", "", uuid.NewString(), true))
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, got.DistrictID)
	require.Equal(t, 1, got.Page)
	require.Equal(t, pagination.DefaultLimit, got.Limit)

	w = httptest.NewRecorder()
	Rank(svc, nil)(w, request(http.MethodGet, "/?limit=1000", "", uuid.NewString(), true))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	Rank(svc, nil)(w, request(http.MethodGet, "/?district_id=x", "", uuid.NewString(), true))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankUnknownPost(t *testing.T) {
	svc := stubService{rank: func(ctx context.Context, input meritsvc.RankInput) (*meritsvc.RankedList, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}}
	w := httptest.NewRecorder()
	Rank(svc, nil)(w, request(http.MethodGet, "/", "", uuid.NewString(), true))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnapshot(t *testing.T) {
	postID := uuid.New()
	var got meritsvc.SnapshotInput
	svc := stubService{snapshot: func(ctx context.Context, input meritsvc.SnapshotInput) (*meritsvc.SnapshotResult, error) {
		got = input
		return &meritsvc.SnapshotResult{PostID: input.PostID, Rows: 3, GeneratedAt: time.Now().UTC()}, nil
	}}

	w := httptest.NewRecorder()
	Snapshot(svc, nil)(w, request(http.MethodPost, "/", "", postID.String(), true))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, postID, got.PostID)
	require.NotEqual(t, uuid.Nil, got.AdminID)
	require.Nil(t, got.DistrictID)

	districtID := uuid.New()
	w = httptest.NewRecorder()
	Snapshot(svc, nil)(w, request(http.MethodPost, "/", `{"district_id":"`+districtID.String()+`"}`, postID.String(), true))
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got.DistrictID)
	require.Equal(t, districtID, *got.DistrictID)

	w = httptest.NewRecorder()
	Snapshot(svc, nil)(w, request(http.MethodPost, "/", "", postID.String(), false))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
