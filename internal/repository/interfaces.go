// 文件路径: internal/repository/interfaces.go
// 模块说明: 仓储接口定义，sqlite 子包提供实现。
package repository

import "context"

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	Users() UserRepository
	Plans() PlanRepository
	Servers() ServerRepository
	SubscriptionLogs() SubscriptionLogRepository
}

// UserRepository 定义用户相关数据访问方法。
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByToken(ctx context.Context, token string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Count(ctx context.Context) (int64, error)
}

// PlanRepository 定义套餐数据访问方法。
type PlanRepository interface {
	FindByID(ctx context.Context, id int64) (*Plan, error)
	Create(ctx context.Context, plan *Plan) (*Plan, error)
}

// ServerRepository 定义节点数据访问方法。
type ServerRepository interface {
	// ListVisible 返回 show = 1 的节点，按 sort、id 升序。
	ListVisible(ctx context.Context) ([]*Server, error)
	ListAll(ctx context.Context) ([]*Server, error)
	FindByID(ctx context.Context, id int64) (*Server, error)
	Create(ctx context.Context, server *Server) error
	// TouchHeartbeat 记录节点最近一次心跳时间。
	TouchHeartbeat(ctx context.Context, id int64, at int64) error
}

// SubscriptionLogRepository 订阅拉取日志。
type SubscriptionLogRepository interface {
	Log(ctx context.Context, log *SubscriptionLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*SubscriptionLog, error)
	// DeleteBefore 删除 created_at 早于 before 的日志，返回删除行数。
	DeleteBefore(ctx context.Context, before int64) (int64, error)
}
