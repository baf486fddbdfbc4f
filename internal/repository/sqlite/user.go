package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

type userRepo struct {
	db *sql.DB
}

const userColumns = `id, uuid, token, email, plan_id, group_id, expired_at, u, d, transfer_enable, banned, created_at, updated_at`

func userSelectBy(column string) string {
	return `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? LIMIT 1`
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelectBy("id"), id))
}

func (r *userRepo) FindByToken(ctx context.Context, token string) (*repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelectBy("token"), token))
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelectBy("email"), email))
}

func (r *userRepo) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	if user == nil {
		return nil, errors.New("user 不能为空")
	}
	const stmt = `INSERT INTO users (
		uuid, token, email, plan_id, group_id, expired_at, u, d, transfer_enable, banned, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	res, err := r.db.ExecContext(ctx, stmt,
		user.UUID,
		user.Token,
		user.Email,
		user.PlanID,
		user.GroupID,
		user.ExpiredAt,
		user.U,
		user.D,
		user.TransferEnable,
		boolToInt(user.Banned),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create user %s: %w", user.Email, repository.ErrConflict)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanUser(row rowScanner) (*repository.User, error) {
	var u repository.User
	var banned int
	if err := row.Scan(
		&u.ID,
		&u.UUID,
		&u.Token,
		&u.Email,
		&u.PlanID,
		&u.GroupID,
		&u.ExpiredAt,
		&u.U,
		&u.D,
		&u.TransferEnable,
		&banned,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Banned = banned != 0
	return &u, nil
}
