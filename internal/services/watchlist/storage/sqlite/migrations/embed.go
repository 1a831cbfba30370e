package migrations

import "embed"

// FS contains embedded SQLite migrations for watchlist storage.
//
//go:embed *.sql
var FS embed.FS
