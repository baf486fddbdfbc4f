// 文件路径: internal/service/subscription.go
// 模块说明: 订阅生成编排：用户可用性 → 节点清单 → 订阅信息 → 协议调度。任何失败都返回空文档。
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/creamcroissant/xboard-sub/internal/protocol"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// Outcome 记录一次订阅请求的结果，空文档的原因只体现在日志与指标里。
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeUserMissing     Outcome = "user_missing"
	OutcomeUserUnavailable Outcome = "user_unavailable"
	OutcomeNoServers       Outcome = "no_servers"
	OutcomeEmptyOutput     Outcome = "empty_output"
	OutcomePanic           Outcome = "panic"
	OutcomeError           Outcome = "error"
)

const emptyContentType = "text/plain; charset=utf-8"

// SubscriptionService 负责生成客户端订阅响应。
type SubscriptionService interface {
	Subscribe(ctx context.Context, user *repository.User, params SubscriptionParams) *SubscriptionResult
}

// SubscriptionParams 承接客户端传入的识别参数。
type SubscriptionParams struct {
	Flag      string
	UserAgent string
	// Lang 用于响应头里的状态文案。
	Lang string
}

// SubscriptionResult 包含订阅内容与元数据。Payload 为空表示返回空文档。
type SubscriptionResult struct {
	Payload     []byte
	ContentType string
	ETag        string
	Headers     map[string]string
	Outcome     Outcome
	Client      string
}

// SubscriptionOptions 订阅服务的可选配置。
type SubscriptionOptions struct {
	ShowInfo bool
	Location *time.Location
	// InfoLang 是信息节点使用的语言，默认 zh-CN。
	InfoLang string
	AppName  string
	AppURL   string
	I18n     *i18n.Manager
	Logger   *slog.Logger
	// Registerer 为 nil 时指标不注册到任何注册表。
	Registerer prometheus.Registerer
	Namespace  string
}

type subscriptionService struct {
	users     UserService
	inventory Inventory
	protocols *protocol.Manager
	opts      SubscriptionOptions
	logger    *slog.Logger
	requests  *prometheus.CounterVec
}

// NewSubscriptionService 组装订阅服务依赖。
func NewSubscriptionService(users UserService, inventory Inventory, manager *protocol.Manager, opts SubscriptionOptions) SubscriptionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InfoLang == "" {
		opts.InfoLang = "zh-CN"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "xboard_sub"
	}
	return &subscriptionService{
		users:     users,
		inventory: inventory,
		protocols: manager,
		opts:      opts,
		logger:    logger,
		requests: promauto.With(opts.Registerer).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscription_requests_total",
				Help:      "Subscription requests by outcome and selected client builder.",
			},
			[]string{"outcome", "client"},
		),
	}
}

// Subscribe 生成用户订阅内容。不会返回 nil，失败时 Payload 为空。
func (s *subscriptionService) Subscribe(ctx context.Context, user *repository.User, params SubscriptionParams) (result *SubscriptionResult) {
	client := protocol.ResolveClient(params.Flag, params.UserAgent)
	label := "none"
	if s.protocols != nil {
		builder, _ := s.protocols.Select(client)
		label = protocol.BuilderName(builder)
	}
	logger := s.logger.With("client", label, "client_match", client.Name())
	if user != nil {
		logger = logger.With("user_id", user.ID)
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("subscription build panicked", "panic", rec, "stack", string(debug.Stack()))
			result = emptyResult(OutcomePanic, label)
		}
		s.requests.WithLabelValues(string(result.Outcome), result.Client).Inc()
	}()

	outcome, res, err := s.build(ctx, user, client, params, logger)
	switch {
	case err != nil:
		logger.Error("subscription build failed", "outcome", outcome, "error", err)
		return emptyResult(outcome, label)
	case outcome != OutcomeOK:
		logger.Warn("subscription returned empty document", "outcome", outcome)
		return emptyResult(outcome, label)
	}

	headers := res.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	contentType := res.ContentType
	if contentType == "" {
		contentType = emptyContentType
	}
	logger.Debug("subscription generated", "bytes", len(res.Payload))
	return &SubscriptionResult{
		Payload:     res.Payload,
		ContentType: contentType,
		ETag:        computeSubscriptionETag(res.Payload),
		Headers:     headers,
		Outcome:     OutcomeOK,
		Client:      label,
	}
}

func (s *subscriptionService) build(ctx context.Context, user *repository.User, client protocol.ClientIdentity, params SubscriptionParams, logger *slog.Logger) (Outcome, *protocol.Result, error) {
	if s.users == nil || s.inventory == nil || s.protocols == nil {
		return OutcomeError, nil, ErrNotConfigured
	}
	if user == nil {
		return OutcomeUserMissing, nil, nil
	}
	if !s.users.IsAvailable(user) {
		return OutcomeUserUnavailable, nil, nil
	}
	servers, err := s.inventory.ListForUser(ctx, user)
	if err != nil {
		return OutcomeError, nil, fmt.Errorf("load inventory: %w", err)
	}
	if len(servers) == 0 {
		return OutcomeNoServers, nil, nil
	}

	req := protocol.BuildRequest{
		Context: ctx,
		User:    user,
		Servers: servers,
		Client:  client,
		AppName: s.opts.AppName,
		AppURL:  s.opts.AppURL,
		Lang:    strings.TrimSpace(params.Lang),
		I18n:    s.opts.I18n,
		Logger:  logger,
	}
	if s.opts.ShowInfo {
		resetDays, hasReset := s.users.ResetDay(ctx, user)
		info := protocol.BuildInfo(user, resetDays, hasReset, protocol.InfoOptions{
			Location: s.opts.Location,
			Lang:     s.opts.InfoLang,
			I18n:     s.opts.I18n,
		})
		req.Info = &info
	}

	res, err := s.protocols.Build(req)
	if err != nil {
		return OutcomeError, nil, err
	}
	if res.Empty() {
		return OutcomeEmptyOutput, nil, nil
	}
	return OutcomeOK, res, nil
}

func emptyResult(outcome Outcome, client string) *SubscriptionResult {
	return &SubscriptionResult{
		ContentType: emptyContentType,
		Headers:     map[string]string{},
		Outcome:     outcome,
		Client:      client,
	}
}

func computeSubscriptionETag(payload []byte) string {
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}
