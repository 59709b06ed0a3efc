package appfs

import "embed"

// FS holds the goose migrations and the assets (email templates, password lists) shipped with every binary.
//
//go:embed migrations all:assets
var FS embed.FS
