package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/service"
)

// StartAuditWorker registers audit handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}

// StartConsoleSweeper drops idle consoles every interval until ctx is done.
func StartConsoleSweeper(ctx context.Context, registry *service.Registry, interval time.Duration, logger *zap.Logger) {
	if registry == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debug("console sweeper stopped")
				return
			case <-ticker.C:
				registry.Sweep()
			}
		}
	}()
}

// SessionPurger deletes expired persisted sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartSessionPurger purges expired session rows every interval until ctx is done.
func StartSessionPurger(ctx context.Context, purger SessionPurger, interval time.Duration, logger *zap.Logger) {
	if purger == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := purger.PurgeExpired(ctx)
				if err != nil {
					logger.Warn("session purge failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("purged expired sessions", zap.Int64("count", n))
				}
			}
		}
	}()
}
