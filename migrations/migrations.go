// Package migrations embeds the warehouse DDL applied by the Schema stage.
package migrations

import "embed"

// FS holds the numbered golang-migrate files.
//
//go:embed *.sql
var FS embed.FS
