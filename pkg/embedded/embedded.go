// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains all files embedded in the Go binary:
//   - schemas/ - SQLite schema for each database, applied by database.Migrate
//
//go:embed schemas
var Files embed.FS
