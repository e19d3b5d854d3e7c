// Package appfs embeds the static files shipped with the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* common-passwords.txt
var FS embed.FS

// MigrationsDir is the directory of the goose migrations inside FS.
const MigrationsDir = "migrations"
