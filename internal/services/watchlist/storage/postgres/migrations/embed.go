package migrations

import "embed"

// FS contains embedded PostgreSQL migrations for watchlist storage.
//
//go:embed *.sql
var FS embed.FS
