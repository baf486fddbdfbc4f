// 文件路径: internal/service/inventory.go
// 模块说明: 为用户筛选可见节点，补齐在线状态与 cache_key，并把 settings 解码为协议负载。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/protocol"
	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// Inventory 提供用户可用节点列表。
type Inventory interface {
	ListForUser(ctx context.Context, user *repository.User) ([]protocol.Server, error)
}

type inventory struct {
	servers  repository.ServerRepository
	liveness *cache.Liveness
	policy   *bluemonday.Policy
	logger   *slog.Logger
	now      func() time.Time
	window   time.Duration
}

// NewInventory 组装节点清单服务。liveness 为 nil 时只使用库里的心跳时间。
func NewInventory(servers repository.ServerRepository, liveness *cache.Liveness, logger *slog.Logger) Inventory {
	if logger == nil {
		logger = slog.Default()
	}
	window := 300 * time.Second
	if liveness != nil {
		window = liveness.Window()
	}
	return &inventory{
		servers:  servers,
		liveness: liveness,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
		now:      time.Now,
		window:   window,
	}
}

// ListForUser 返回用户分组可见的节点，按 sort 升序，sort 相同按 id 升序。
func (i *inventory) ListForUser(ctx context.Context, user *repository.User) ([]protocol.Server, error) {
	if i.servers == nil {
		return nil, ErrNotConfigured
	}
	if user == nil {
		return nil, nil
	}
	records, err := i.servers.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}

	out := make([]protocol.Server, 0, len(records))
	for _, record := range records {
		if record == nil || !record.Show {
			continue
		}
		groups := parseGroupIDs(record.GroupIDs)
		if !containsGroup(groups, user.GroupID) {
			i.logger.Debug("server skipped: group not matched", "server_id", record.ID, "type", record.Type, "user_group", user.GroupID)
			continue
		}
		server := i.decodeServer(record, groups)
		server.LastCheckAt = i.lastCheck(ctx, record)
		server.IsOnline = i.online(server.LastCheckAt)
		server.CacheKey = cacheKey(server)
		out = append(out, server)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Sort != out[b].Sort {
			return out[a].Sort < out[b].Sort
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

// decodeServer 把库里的记录转换为编码器使用的节点描述，settings 中的驼峰与下划线键在这里统一。
func (i *inventory) decodeServer(record *repository.Server, groups []int64) protocol.Server {
	server := protocol.Server{
		ID:        record.ID,
		Type:      strings.ToLower(strings.TrimSpace(record.Type)),
		Name:      i.sanitizeName(record.Name),
		Host:      strings.TrimSpace(record.Host),
		Sort:      record.Sort,
		GroupIDs:  groups,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	port := strings.TrimSpace(record.Port)
	if strings.Contains(port, "-") {
		if lo, _, ok := protocol.ParsePortRange(port); ok {
			server.PortRange = port
			server.Port = lo
		} else {
			i.logger.Warn("invalid port range", "server_id", record.ID, "port", port)
		}
	} else if n, err := strconv.Atoi(port); err == nil {
		server.Port = n
	}
	if err := server.ApplySettings(record.Settings); err != nil {
		i.logger.Warn("server settings degraded to defaults", "server_id", record.ID, "type", record.Type, "error", err)
	}
	return server
}

func (i *inventory) sanitizeName(name string) string {
	return strings.TrimSpace(html.UnescapeString(i.policy.Sanitize(name)))
}

func (i *inventory) lastCheck(ctx context.Context, record *repository.Server) int64 {
	if i.liveness != nil {
		if at, ok := i.liveness.LastCheck(ctx, record.Type, record.ID); ok {
			return at
		}
	}
	return record.LastHeartbeatAt
}

func (i *inventory) online(lastCheck int64) bool {
	if lastCheck <= 0 {
		return false
	}
	return i.now().Unix()-int64(i.window/time.Second) <= lastCheck
}

func cacheKey(server protocol.Server) string {
	online := 0
	if server.IsOnline {
		online = 1
	}
	return fmt.Sprintf("%s-%d-%d-%d", server.Type, server.ID, server.UpdatedAt, online)
}

// parseGroupIDs 同时接受数字与数字字符串，无法识别的元素忽略。
func parseGroupIDs(raw json.RawMessage) []int64 {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		var single any
		if json.Unmarshal(raw, &single) != nil {
			return nil
		}
		items = []any{single}
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			if v == float64(int64(v)) {
				ids = append(ids, int64(v))
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				ids = append(ids, n)
			}
		}
	}
	return ids
}

func containsGroup(groups []int64, target int64) bool {
	for _, id := range groups {
		if id == target {
			return true
		}
	}
	return false
}
