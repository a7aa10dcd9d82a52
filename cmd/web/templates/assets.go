// Package templates renders the HTML pages and datastar fragments.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"io/fs"
	"sync"

	"thirdcoast.systems/mediagrab/static"
)

const (
	// datastarBundle is vendored by `go generate ./static`.
	datastarBundle = "dist/datastar.js"
	datastarCDN    = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
)

var datastarSrc = sync.OnceValue(func() string {
	return datastarSrcFrom(static.FS)
})

// DatastarSrc is the script URL for the datastar client: the embedded copy
// when one was vendored, otherwise the pinned CDN build.
func DatastarSrc() string {
	return datastarSrc()
}

func datastarSrcFrom(fsys fs.FS) string {
	if _, err := fs.Stat(fsys, datastarBundle); err == nil {
		return "/static/" + datastarBundle
	}
	return datastarCDN
}
