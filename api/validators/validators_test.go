package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/recruitment-backend/pkg/errors"
)

func withRouteParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := withRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
	got, err := ParseUUIDParam(req, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}

	bad := withRouteParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope")
	if _, err := ParseUUIDParam(bad, "id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseOptionalUUIDQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?district_id=", nil)
	got, err := ParseOptionalUUIDQuery(req, "district_id")
	if err != nil || got != nil {
		t.Fatalf("expected nil for empty value, got %v (%v)", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?district_id=bad", nil)
	if _, err := ParseOptionalUUIDQuery(req, "district_id"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	if err != nil || v != 25 {
		t.Fatalf("expected default 25, got %d (%v)", v, err)
	}
}

type decisionBody struct {
	Target string `json:"target" validate:"required"`
}

func TestDecodeJSONBodyRejectsUnknownAndMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"target":"SELECTED","extra":1}`))
	var body decisionBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["target"] != "is required" {
		t.Fatalf("expected field detail keyed by json name, got %#v", typed.Details())
	}
}

func TestRemarks(t *testing.T) {
	blank := "   "
	if Remarks(&blank) != nil {
		t.Fatal("blank remarks should be dropped")
	}
	raw := "  keep  "
	if got := Remarks(&raw); got == nil || *got != "keep" {
		t.Fatalf("expected trimmed remarks, got %v", got)
	}
	if Remarks(nil) != nil {
		t.Fatal("nil stays nil")
	}
}

type statusBody struct {
	Status string   `json:"status" validate:"required,application_status"`
	IDs    []string `json:"ids" validate:"omitempty,max=2"`
}

func TestDecodeJSONBodyDomainRules(t *testing.T) {
	var body statusBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"under_review"}`))
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("lower case status should pass, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"PROMOTED","ids":["a","b","c"]}`))
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	if typed == nil {
		t.Fatal("expected typed validation error")
	}
	details := typed.Details().(map[string]string)
	if details["status"] != "must be a known application status" {
		t.Fatalf("unexpected status detail %q", details["status"])
	}
	if details["ids"] != "must contain at most 2 item(s)" {
		t.Fatalf("unexpected ids detail %q", details["ids"])
	}
}

func TestDecodeJSONBodyRejectsEmptyAndTrailing(t *testing.T) {
	var body statusBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSONBody(req, &body)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is required" {
		t.Fatalf("expected empty body error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"SELECTED"}{"status":"REJECTED"}`))
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected trailing object to be rejected, got %v", err)
	}
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil))
	if err != nil || p.Page != 3 || p.Limit != 10 {
		t.Fatalf("unexpected params %+v (%v)", p, err)
	}
	if _, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?page=0", nil)); err == nil {
		t.Fatal("page 0 should be rejected")
	}
	if _, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)); err == nil {
		t.Fatal("non numeric limit should be rejected")
	}
}

func TestRemarksCapsByCharacter(t *testing.T) {
	long := strings.Repeat("é", maxRemarksRunes+5)
	got := Remarks(&long)
	if got == nil || len([]rune(*got)) != maxRemarksRunes {
		t.Fatalf("expected %d characters", maxRemarksRunes)
	}
}
