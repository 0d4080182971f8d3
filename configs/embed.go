// Package configs embeds the bundled GPU configuration profiles.
package configs

import "embed"

//go:embed *.yaml
var FS embed.FS
