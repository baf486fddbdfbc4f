package migrations

import "embed"

// SQLite embeds all SQLite migration files.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
