// 文件路径: internal/migrations/runner.go
// 模块说明: goose 迁移入口，SQL 文件内嵌在二进制中。
package migrations

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

const dir = "sqlite"

var setupOnce sync.Once

func setup() {
	setupOnce.Do(func() {
		goose.SetBaseFS(SQLite)
		if err := goose.SetDialect("sqlite3"); err != nil {
			panic(fmt.Sprintf("goose dialect: %v", err))
		}
	})
}

// Up migrates the SQLite schema to the latest version.
func Up(db *sql.DB) error {
	setup()
	return goose.Up(db, dir)
}

// Down rolls back a single migration.
func Down(db *sql.DB) error {
	setup()
	return goose.Down(db, dir)
}

// Status prints migration status.
func Status(db *sql.DB) error {
	setup()
	return goose.Status(db, dir)
}

// Version 返回当前数据库的迁移版本。
func Version(db *sql.DB) (int64, error) {
	setup()
	return goose.GetDBVersion(db)
}
