package appfs

import "embed"

// FS holds the goose migrations of the baseline schema.
//go:embed migrations/*.sql
var FS embed.FS
