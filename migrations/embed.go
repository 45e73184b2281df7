// Package migrations carries the goose migration files compiled into the
// binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
