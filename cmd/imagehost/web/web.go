package web

import (
	"embed"
	"io/fs"
)

//go:embed pages/*.html
var pages embed.FS

// Page returns an embedded HTML page by file name
func Page(name string) ([]byte, error) {
	return fs.ReadFile(pages, "pages/"+name)
}
