// Package migrations embeds the goose migrations for every storage backend.
package migrations

import "embed"

// FS holds clickhouse/*.sql and sql/*.sql
//
//go:embed clickhouse/*.sql sql/*.sql
var FS embed.FS

// Directories inside FS, one per dialect family
const (
	ClickHouseDir = "clickhouse"
	SQLDir        = "sql"
)
