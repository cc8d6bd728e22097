// Package migrations embeds the goose SQL migrations for the local store.
// Migrations are additive only: new nullable columns and new tables.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
