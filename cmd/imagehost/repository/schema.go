package repository

import _ "embed"

// PostgresSchema creates the images table on Postgres
//
//go:embed schema/postgres.sql
var PostgresSchema string

// SQLiteSchema creates the images table on SQLite
//
//go:embed schema/sqlite.sql
var SQLiteSchema string
