// Package appfs embeds the static files of the application.
package appfs

import "embed"

//go:embed migrations/*.sql templates
var FS embed.FS
