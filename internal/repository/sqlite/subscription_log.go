package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

type subscriptionLogRepo struct {
	db *sql.DB
}

func (r *subscriptionLogRepo) Log(ctx context.Context, log *repository.SubscriptionLog) error {
	if log == nil {
		return errors.New("subscription log 不能为空")
	}
	if log.CreatedAt == 0 {
		log.CreatedAt = time.Now().Unix()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subscription_logs (user_id, client, outcome, ip, user_agent, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		log.UserID, log.Client, log.Outcome, log.IP, log.UserAgent, log.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = id
	return nil
}

func (r *subscriptionLogRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*repository.SubscriptionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, client, outcome, ip, user_agent, created_at FROM subscription_logs
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*repository.SubscriptionLog
	for rows.Next() {
		var l repository.SubscriptionLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Client, &l.Outcome, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *subscriptionLogRepo) DeleteBefore(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscription_logs WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
