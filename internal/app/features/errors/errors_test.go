package errors_test

import (
	"net/http"
	"testing"

	apierrors "github.com/dalemusser/trackhub/internal/app/features/errors"
	"github.com/dalemusser/trackhub/internal/testutil"
	"go.uber.org/zap"
)

func TestNotFound(t *testing.T) {
	h := apierrors.NewHandler(zap.NewNop())
	rec := testutil.NewRecorder()
	h.NotFound(rec, testutil.NewRequest("GET", "/api/nope"))

	rec.AssertStatus(t, http.StatusNotFound)
	env := rec.Envelope(t)
	if env.Success || env.Error == nil || env.Error.Kind != "NotFound" {
		t.Errorf("envelope = %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := apierrors.NewHandler(zap.NewNop())
	rec := testutil.NewRecorder()
	h.MethodNotAllowed(rec, testutil.NewRequest("PATCH", "/api/projects"))

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "PATCH")
}
