package migrations

import "embed"

// FS embeds the SQLite migrations.
//
//go:embed *.sql
var FS embed.FS

// PostgresFS embeds the PostgreSQL migrations used by the daemon.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS
