// Package migrations встраивает SQL-миграции для goose.
package migrations

import "embed"

// FS содержит все файлы *.sql.
//
//go:embed *.sql
var FS embed.FS
