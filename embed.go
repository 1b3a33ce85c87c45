package giftsniper

import "embed"

//go:embed migrations
var MigrationsFS embed.FS
