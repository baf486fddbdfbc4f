package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// SubscriptionLogCleanupJob 删除超过保留期的订阅拉取日志。
type SubscriptionLogCleanupJob struct {
	logs      repository.SubscriptionLogRepository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewSubscriptionLogCleanupJob creates the cleanup job. retention <= 0 关闭清理。
func NewSubscriptionLogCleanupJob(logs repository.SubscriptionLogRepository, retention time.Duration, logger *slog.Logger) *SubscriptionLogCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionLogCleanupJob{logs: logs, retention: retention, logger: logger, now: time.Now}
}

// Name implements Runnable interface.
func (j *SubscriptionLogCleanupJob) Name() string {
	return "subscription_log.cleanup"
}

// Run implements Runnable interface.
func (j *SubscriptionLogCleanupJob) Run(ctx context.Context) error {
	if j == nil || j.logs == nil {
		return fmt.Errorf("subscription log cleanup job dependencies not configured / 订阅日志清理任务依赖未配置")
	}
	if j.retention <= 0 {
		return nil
	}
	deleted, err := j.logs.DeleteBefore(ctx, j.now().Add(-j.retention).Unix())
	if err != nil {
		return fmt.Errorf("subscription log cleanup job: %w", err)
	}
	if deleted > 0 {
		j.logger.Info("cleaned up old subscription logs", "deleted_rows", deleted)
	}
	return nil
}
