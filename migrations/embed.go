// Package migrations embeds the Postgres schema migrations so the server and
// migrate binaries do not depend on the working directory.
package migrations

import "embed"

// FS holds the numbered *.up.sql and *.down.sql files
//
//go:embed *.sql
var FS embed.FS
