// 文件路径: internal/protocol/manager.go
// 模块说明: 构建器调度：sing-box 版本分流、信息注入、按注册顺序匹配客户端标识，兜底使用通用格式。
package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// sing-box 1.12 起使用 route rule action，之前的版本走旧模板。
var singboxRuleActionVersion = []int{1, 12}

type route struct {
	token   string
	builder Builder
}

// Manager 管理可用的协议构建器，并按客户端标识匹配。
type Manager struct {
	routes         []route
	defaultBuilder Builder
	singbox        Builder
	singboxLegacy  Builder
	logger         *slog.Logger
}

// Option 配置 Manager。
type Option func(*Manager)

// WithDefault 设置未匹配任何标识时使用的构建器。
func WithDefault(builder Builder) Option {
	return func(m *Manager) {
		m.defaultBuilder = builder
	}
}

// WithSingbox 注册 sing-box 的新旧两个构建器，任一可以为 nil。
func WithSingbox(current, legacy Builder) Option {
	return func(m *Manager) {
		m.singbox = current
		m.singboxLegacy = legacy
	}
}

// WithLogger 设置日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager 创建调度器，builders 按传入顺序注册。
func NewManager(builders []Builder, opts ...Option) *Manager {
	m := &Manager{logger: slog.Default()}
	for _, builder := range builders {
		m.Register(builder)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register 按声明顺序登记构建器的每个匹配标识。
func (m *Manager) Register(builder Builder) {
	if builder == nil {
		return
	}
	for _, flag := range builder.Flags() {
		token := strings.ToLower(strings.TrimSpace(flag))
		if token == "" {
			continue
		}
		m.routes = append(m.routes, route{token: token, builder: builder})
	}
}

// Flags 返回所有已登记的匹配标识。
func (m *Manager) Flags() []string {
	seen := make(map[string]struct{})
	var flags []string
	for _, r := range m.routes {
		if _, ok := seen[r.token]; ok {
			continue
		}
		seen[r.token] = struct{}{}
		flags = append(flags, r.token)
	}
	return flags
}

// Select 返回本次请求使用的构建器，以及该构建器是否为 sing-box 专用分支。
func (m *Manager) Select(client ClientIdentity) (Builder, bool) {
	if builder := m.selectSingbox(client); builder != nil {
		return builder, true
	}
	if builder := m.match(client.Match); builder != nil {
		return builder, false
	}
	return m.defaultBuilder, false
}

// Build 调度一次订阅生成。只有非 sing-box 客户端才会注入订阅信息节点。
func (m *Manager) Build(req BuildRequest) (*Result, error) {
	if req.Context == nil {
		req.Context = context.Background()
	}
	if builder := m.selectSingbox(req.Client); builder != nil {
		return builder.Build(req)
	}
	if !req.Client.IsSingbox() && req.Info != nil {
		req.Servers = InjectInfo(req.Servers, *req.Info)
	}
	builder := m.match(req.Client.Match)
	if builder == nil {
		builder = m.defaultBuilder
	}
	if builder == nil {
		return nil, fmt.Errorf("no protocol builders registered / 未注册任何协议构建器")
	}
	return builder.Build(req)
}

func (m *Manager) selectSingbox(client ClientIdentity) Builder {
	if !client.IsSingbox() {
		return nil
	}
	if client.Version == "" {
		return m.singboxLegacy
	}
	version, ok := parseVersion(client.Version)
	if !ok {
		m.logger.Warn("invalid sing-box version format", "version", client.Version)
		return m.singboxLegacy
	}
	if versionLess(version, singboxRuleActionVersion) {
		return m.singboxLegacy
	}
	return m.singbox
}

func (m *Manager) match(combined string) Builder {
	if combined == "" {
		return nil
	}
	for _, r := range m.routes {
		if strings.Contains(combined, r.token) {
			return r.builder
		}
	}
	return nil
}

// BuilderName 返回构建器的首个标识，用作日志与指标标签。
func BuilderName(builder Builder) string {
	if builder == nil {
		return "none"
	}
	if flags := builder.Flags(); len(flags) > 0 {
		return strings.ToLower(flags[0])
	}
	return "unknown"
}
