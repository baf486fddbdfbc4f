// 文件路径: internal/repository/sqlite/server.go
// 模块说明: 节点表读写，settings 与 group_ids 以 JSON 文本保存。
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

type serverRepo struct {
	db *sql.DB
}

const serverColumns = `id, type, name, host, port, group_ids, "show", sort, settings, last_heartbeat_at, created_at, updated_at`

func (r *serverRepo) ListVisible(ctx context.Context) ([]*repository.Server, error) {
	return r.list(ctx, `SELECT `+serverColumns+` FROM servers WHERE "show" = 1 ORDER BY sort ASC, id ASC`)
}

func (r *serverRepo) ListAll(ctx context.Context) ([]*repository.Server, error) {
	return r.list(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY sort ASC, id ASC`)
}

func (r *serverRepo) list(ctx context.Context, query string, args ...any) ([]*repository.Server, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*repository.Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return servers, nil
}

func (r *serverRepo) FindByID(ctx context.Context, id int64) (*repository.Server, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	server, err := scanServer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return server, nil
}

func (r *serverRepo) Create(ctx context.Context, server *repository.Server) error {
	const stmt = `INSERT INTO servers (
		type, name, host, port, group_ids, "show", sort, settings, last_heartbeat_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	server.CreatedAt = now
	server.UpdatedAt = now
	res, err := r.db.ExecContext(ctx, stmt,
		server.Type,
		server.Name,
		server.Host,
		server.Port,
		jsonText(server.GroupIDs, "[]"),
		boolToInt(server.Show),
		server.Sort,
		jsonText(server.Settings, "{}"),
		server.LastHeartbeatAt,
		server.CreatedAt,
		server.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	server.ID = id
	return nil
}

// TouchHeartbeat 只更新心跳时间，不修改 updated_at，避免订阅 cache_key 随心跳抖动。
func (r *serverRepo) TouchHeartbeat(ctx context.Context, id int64, at int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE servers SET last_heartbeat_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanServer(row rowScanner) (*repository.Server, error) {
	var s repository.Server
	var groupIDs, settings sql.NullString
	var show int
	if err := row.Scan(
		&s.ID,
		&s.Type,
		&s.Name,
		&s.Host,
		&s.Port,
		&groupIDs,
		&show,
		&s.Sort,
		&settings,
		&s.LastHeartbeatAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Show = show == 1
	if groupIDs.Valid {
		s.GroupIDs = json.RawMessage(groupIDs.String)
	}
	if settings.Valid {
		s.Settings = json.RawMessage(settings.String)
	}
	return &s, nil
}

func jsonText(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	return string(raw)
}
