package job

import (
	"context"
	"log/slog"

	"github.com/creamcroissant/xboard-sub/internal/service"
)

// LivenessSyncJob 把数据库里的心跳时间同步到缓存，进程重启后在线状态不会全部丢失。
type LivenessSyncJob struct {
	heartbeat service.HeartbeatService
	logger    *slog.Logger
}

// NewLivenessSyncJob 构造心跳同步任务。
func NewLivenessSyncJob(heartbeat service.HeartbeatService, logger *slog.Logger) *LivenessSyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LivenessSyncJob{heartbeat: heartbeat, logger: logger}
}

// Name 返回任务标识。
func (j *LivenessSyncJob) Name() string {
	return "liveness-sync"
}

// Run 执行一次同步。
func (j *LivenessSyncJob) Run(ctx context.Context) error {
	synced, err := j.heartbeat.Sync(ctx)
	if err != nil {
		return err
	}
	if synced > 0 {
		j.logger.Debug("liveness synced", "servers", synced)
	}
	return nil
}
