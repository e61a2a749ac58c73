// Package migrations embeds the goose migrations for the sessions database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
