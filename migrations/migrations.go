// Package migrations embeds the database schema applied by cmd/migrate.
package migrations

import _ "embed"

//go:embed schema.sql
var Schema string
