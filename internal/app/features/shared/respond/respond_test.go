package respond_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/trackhub/internal/app/features/shared/respond"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOK(t *testing.T) {
	rec := testutil.NewRecorder()
	respond.OK(rec, map[string]string{"hello": "world"})

	rec.AssertStatus(t, http.StatusOK)
	var got map[string]string
	rec.Data(t, &got)
	if got["hello"] != "world" {
		t.Errorf("data = %v", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestError_Kinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
		sub    string
	}{
		{apperr.ErrForbidden, http.StatusForbidden, "Forbidden", ""},
		{apperr.ErrDuplicateKey, http.StatusConflict, "InvalidInput", "DuplicateKey"},
		{apperr.NotFoundf("task not found"), http.StatusNotFound, "NotFound", ""},
		{apperr.ErrSelfProtection, http.StatusUnprocessableEntity, "SelfProtectionViolation", ""},
		{apperr.ErrInvalidCredential, http.StatusUnauthorized, "Unauthenticated", ""},
	}
	for _, tc := range cases {
		rec := testutil.NewRecorder()
		respond.Error(rec, zap.NewNop(), tc.err)
		rec.AssertStatus(t, tc.status)
		env := rec.Envelope(t)
		if env.Success || env.Error == nil || env.Error.Kind != tc.kind || env.Error.SubKind != tc.sub {
			t.Errorf("%v: envelope = %s", tc.err, rec.Body.String())
		}
	}
}

func TestError_HidesInternalDetail(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := testutil.NewRecorder()
	respond.Error(rec, zap.New(core), errors.New("connection string leaked"))

	rec.AssertStatus(t, http.StatusInternalServerError)
	if strings.Contains(rec.Body.String(), "leaked") {
		t.Errorf("internal error text in body: %s", rec.Body.String())
	}
	if logs.Len() != 1 {
		t.Errorf("logged %d entries, want 1", logs.Len())
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}`))
	if err := respond.Decode(httptest.NewRecorder(), req, &v); err != nil || v.Name != "x" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"nmae":"x"}`))
	if err := respond.Decode(httptest.NewRecorder(), req, &v); !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("unknown field err = %v, want InvalidInput", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	if err := respond.Decode(httptest.NewRecorder(), req, &v); !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("bad json err = %v, want InvalidInput", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(``))
	if err := respond.Decode(httptest.NewRecorder(), req, &v); err != nil {
		t.Errorf("empty body err = %v, want nil", err)
	}
}
