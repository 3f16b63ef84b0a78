// Package migrations embeds the schema migrations of each supported
// database dialect, one directory per dialect.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
