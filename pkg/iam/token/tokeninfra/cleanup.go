package tokeninfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/logx"
)

// Sweeper deactivates expired sessions and reports how many it touched.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// CleanupService runs the expired-session sweep on a fixed interval.
type CleanupService struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewCleanupService(sweeper Sweeper, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &CleanupService{sweeper: sweeper, interval: interval}
}

// Start blocks until ctx is done.
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logx.WithField("interval", s.interval.String()).Info("Token cleanup started")
	for {
		select {
		case <-ctx.Done():
			logx.Info("Token cleanup stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged and swallowed.
func (s *CleanupService) RunOnce(ctx context.Context) int64 {
	n, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		logx.WithError(err).Error("Token cleanup failed")
		return 0
	}
	if n > 0 {
		logx.WithField("deactivated", n).Info("Expired tokens deactivated")
	}
	return n
}
