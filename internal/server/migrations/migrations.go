// Package migrations embeds the SQL schema migrations for both supported
// storage dialects. The repository managers pick the directory matching
// their driver.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
