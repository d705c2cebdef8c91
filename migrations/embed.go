// Package migrations embeds the SQL schema of the sign-in audit trail.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
