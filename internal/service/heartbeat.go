// 文件路径: internal/service/heartbeat.go
// 模块说明: 节点心跳上报与在线状态缓存同步。
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// HeartbeatService 记录节点心跳，供节点清单计算 is_online。
type HeartbeatService interface {
	Beat(ctx context.Context, serverID int64, token string) error
	Sync(ctx context.Context) (int, error)
}

type heartbeatService struct {
	servers  repository.ServerRepository
	liveness *cache.Liveness
	token    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewHeartbeatService 组装心跳服务。token 为空时拒绝所有上报。
func NewHeartbeatService(servers repository.ServerRepository, liveness *cache.Liveness, token string, logger *slog.Logger) HeartbeatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &heartbeatService{servers: servers, liveness: liveness, token: strings.TrimSpace(token), logger: logger, now: time.Now}
}

// Beat 校验通信密钥后写入心跳时间。
func (s *heartbeatService) Beat(ctx context.Context, serverID int64, token string) error {
	if s.token == "" || subtle.ConstantTimeCompare([]byte(s.token), []byte(strings.TrimSpace(token))) != 1 {
		return ErrInvalidServerToken
	}
	if s.servers == nil {
		return ErrNotConfigured
	}
	server, err := s.servers.FindByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find server: %w", err)
	}
	at := s.now().Unix()
	if err := s.servers.TouchHeartbeat(ctx, server.ID, at); err != nil {
		return fmt.Errorf("touch heartbeat: %w", err)
	}
	if s.liveness != nil {
		if err := s.liveness.Mark(ctx, server.Type, server.ID, at); err != nil {
			s.logger.Warn("cache heartbeat failed", "server_id", server.ID, "error", err)
		}
	}
	return nil
}

// Sync 把库里的心跳时间写回缓存，进程重启后在线状态不会全部丢失。返回写入的节点数。
func (s *heartbeatService) Sync(ctx context.Context) (int, error) {
	if s.servers == nil || s.liveness == nil {
		return 0, ErrNotConfigured
	}
	servers, err := s.servers.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list servers: %w", err)
	}
	synced := 0
	for _, server := range servers {
		if server == nil || server.LastHeartbeatAt <= 0 {
			continue
		}
		if cached, ok := s.liveness.LastCheck(ctx, server.Type, server.ID); ok && cached >= server.LastHeartbeatAt {
			continue
		}
		if err := s.liveness.Mark(ctx, server.Type, server.ID, server.LastHeartbeatAt); err != nil {
			return synced, fmt.Errorf("cache heartbeat %d: %w", server.ID, err)
		}
		synced++
	}
	return synced, nil
}
