// Package migrations embeds the goose migrations for the billing schema.
package migrations

import "embed"

// FS holds every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
