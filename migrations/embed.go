// Package migrations embeds the SQL migrations applied by internal/migrate.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var all embed.FS

// Postgres holds the server schema (users, records, sign-in limiter).
var Postgres = mustSub("postgres")

// SQLite holds the local key-value store schema.
var SQLite = mustSub("sqlite")

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(all, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
