// Package static embeds the browser assets served under /static/.
package static

//go:generate curl -fsSL -o dist/datastar.js https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js

import "embed"

//go:embed dist
var FS embed.FS
