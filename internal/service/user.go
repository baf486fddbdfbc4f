// 文件路径: internal/service/user.go
// 模块说明: 订阅用户查询、可用性判断与流量重置天数。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/quota"
	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// tokenCacheTTL 控制 token→用户 ID 的缓存时间；用户数据本身每次都从库里读。
const tokenCacheTTL = 10 * time.Minute

// UserService 提供订阅流程所需的用户能力。
type UserService interface {
	FindByToken(ctx context.Context, token string) (*repository.User, error)
	IsAvailable(user *repository.User) bool
	ResetDay(ctx context.Context, user *repository.User) (int, bool)
}

// UserOptions 控制用户服务的可选行为。
type UserOptions struct {
	// Tokens 为 nil 时不缓存 token 查询。
	Tokens     cache.Store
	Calculator *quota.Calculator
	// TOTPMinutes 大于 0 时同时接受 TOTP 订阅令牌。
	TOTPMinutes int
	Logger      *slog.Logger
}

type userService struct {
	users       repository.UserRepository
	plans       repository.PlanRepository
	tokens      cache.Store
	calculator  *quota.Calculator
	totpMinutes int
	logger      *slog.Logger
	now         func() time.Time
}

// NewUserService 组装用户服务。
func NewUserService(users repository.UserRepository, plans repository.PlanRepository, opts UserOptions) UserService {
	s := &userService{
		users:       users,
		plans:       plans,
		calculator:  opts.Calculator,
		totpMinutes: opts.TOTPMinutes,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.calculator == nil {
		s.calculator = quota.NewCalculator(quota.ResetMonthFirstDay, time.Local)
	}
	if opts.Tokens != nil {
		s.tokens = opts.Tokens.Namespace("user_token")
	}
	return s
}

// FindByToken 按订阅 token 查找用户，命中缓存时按 ID 回表。
func (s *userService) FindByToken(ctx context.Context, token string) (*repository.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if s.users == nil {
		return nil, ErrNotConfigured
	}
	if s.tokens != nil {
		if id, ok := s.tokens.GetInt64(ctx, token); ok {
			user, err := s.users.FindByID(ctx, id)
			if err == nil && user.Token == token {
				return user, nil
			}
			s.tokens.Delete(ctx, token)
		}
	}
	user, err := s.users.FindByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user by token: %w", err)
		}
		if user = s.findByTOTP(ctx, token); user == nil {
			return nil, ErrInvalidToken
		}
		// TOTP 令牌会过期，不进缓存。
		return user, nil
	}
	if s.tokens != nil {
		_ = s.tokens.Set(ctx, token, user.ID, tokenCacheTTL)
	}
	return user, nil
}

func (s *userService) findByTOTP(ctx context.Context, value string) *repository.User {
	if s.totpMinutes <= 0 {
		return nil
	}
	id, _, ok := parseTOTPToken(value)
	if !ok {
		return nil
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil
	}
	if !verifyTOTP(value, user.Token, user.ID, s.totpMinutes, s.now()) {
		return nil
	}
	return user
}

// IsAvailable 用户未封禁、有流量配额且未过期时可用。
func (s *userService) IsAvailable(user *repository.User) bool {
	if user == nil || user.Banned {
		return false
	}
	if user.TransferEnable <= 0 {
		return false
	}
	if user.ExpiredAt > 0 && user.ExpiredAt <= s.now().Unix() {
		return false
	}
	return true
}

// ResetDay 返回距离下次流量重置的天数。没有套餐、套餐不存在或不重置时 ok 为 false。
func (s *userService) ResetDay(ctx context.Context, user *repository.User) (int, bool) {
	if user == nil || user.PlanID <= 0 || s.plans == nil {
		return 0, false
	}
	plan, err := s.plans.FindByID(ctx, user.PlanID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("load plan failed", "plan_id", user.PlanID, "error", err)
		}
		return 0, false
	}
	var method *quota.ResetMethod
	if plan.ResetTrafficMethod != nil {
		m := quota.ResetMethod(*plan.ResetTrafficMethod)
		method = &m
	}
	return s.calculator.ResetDay(method, user.ExpiredAt)
}
