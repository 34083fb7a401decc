// internal/app/system/workers/jobs.go
package workers

import (
	"context"
	"time"

	"github.com/dalemusser/trackhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// LimiterSweepJob drops login-limiter buckets idle for longer than idle,
// keeping the per-IP and per-email maps bounded.
func LimiterSweepJob(ll *ratelimit.LoginLimiter, logger *zap.Logger, interval, idle time.Duration) Job {
	return Job{
		Name:     "login-limiter-sweep",
		Interval: interval,
		Run: func(context.Context) error {
			if n := ll.Sweep(idle); n > 0 {
				logger.Debug("swept idle login limiter keys", zap.Int("count", n))
			}
			return nil
		},
	}
}
