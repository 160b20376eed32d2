// Package migrations embeds the SQL schema for the postgres backend.
package migrations

import "embed"

// FS holds the .up.sql migration files, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
