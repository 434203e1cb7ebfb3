package migrations

import "embed"

// Files holds forward-only SQL migrations applied after the ORM schema sync.
// Statements must run on both SQLite and PostgreSQL.
//
//go:embed *.sql
var Files embed.FS
