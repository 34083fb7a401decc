package timeouts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	if Short() != 7*time.Second {
		t.Errorf("Short = %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium = %v, want default %v", Medium(), DefaultMedium)
	}

	Reset()
	if Short() != DefaultShort {
		t.Errorf("Short after Reset = %v, want %v", Short(), DefaultShort)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test op")
	defer cancel()

	<-ctx.Done()
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}

	err := Classify(fmt.Errorf("find: %w", context.DeadlineExceeded))
	if !apperr.Is(err, apperr.Unavailable) {
		t.Errorf("deadline should classify as Unavailable, got %v", err)
	}

	plain := errors.New("boom")
	if Classify(plain) != plain {
		t.Error("non-transient error should pass through unchanged")
	}

	forbidden := apperr.ErrForbidden
	if Classify(forbidden) != error(forbidden) {
		t.Error("existing *apperr.Error should pass through unchanged")
	}
}
