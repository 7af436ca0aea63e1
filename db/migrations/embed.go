// Package migrations embeds the SQL schema applied by cmd/tools/migrate.
package migrations

import "embed"

// FS holds the versioned up/down files in golang-migrate naming.
//
//go:embed *.sql
var FS embed.FS
