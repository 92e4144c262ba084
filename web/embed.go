// Package web provides embedded frontend assets for the masthead server.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var staticFS embed.FS

// StaticFS returns the embedded frontend assets as a filesystem.
// The returned FS has "static" as the root, so files are accessed directly
// (e.g., "index.html" not "static/index.html").
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
