// 文件路径: internal/repository/sqlite/store.go
// 模块说明: SQLite 仓储的组装入口。
package sqlite

import (
	"database/sql"
	"strings"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db      *sql.DB
	users   repository.UserRepository
	plans   repository.PlanRepository
	servers repository.ServerRepository
	logs    repository.SubscriptionLogRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		users:   &userRepo{db: db},
		plans:   &planRepo{db: db},
		servers: &serverRepo{db: db},
		logs:    &subscriptionLogRepo{db: db},
	}
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Plans() repository.PlanRepository {
	return s.plans
}

func (s *Store) Servers() repository.ServerRepository {
	return s.servers
}

func (s *Store) SubscriptionLogs() repository.SubscriptionLogRepository {
	return s.logs
}

type rowScanner interface {
	Scan(dest ...any) error
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func optionalInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableIntPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}

// isUniqueViolation 识别 SQLite 的唯一约束错误。
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
