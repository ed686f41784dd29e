package migrations

import "embed"

// PostgresFS holds the schema for the Postgres trade-record mirror.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the schema for the ClickHouse trade archive.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
