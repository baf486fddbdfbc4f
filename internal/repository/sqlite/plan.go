package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

type planRepo struct {
	db *sql.DB
}

func (r *planRepo) FindByID(ctx context.Context, id int64) (*repository.Plan, error) {
	const query = `SELECT id, name, group_id, transfer_enable, reset_traffic_method, created_at, updated_at
		FROM plans WHERE id = ?`
	var plan repository.Plan
	var method sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.GroupID,
		&plan.TransferEnable,
		&method,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	plan.ResetTrafficMethod = nullableIntPtr(method)
	return &plan, nil
}

func (r *planRepo) Create(ctx context.Context, plan *repository.Plan) (*repository.Plan, error) {
	if plan == nil {
		return nil, errors.New("plan 不能为空")
	}
	const stmt = `INSERT INTO plans (name, group_id, transfer_enable, reset_traffic_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	res, err := r.db.ExecContext(ctx, stmt,
		plan.Name,
		plan.GroupID,
		plan.TransferEnable,
		optionalInt64(plan.ResetTrafficMethod),
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	plan.ID = id
	return plan, nil
}
