// Package templates holds the embedded HTML views.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Load parses every embedded view into one template set.
func Load() *template.Template {
	return template.Must(template.New("").ParseFS(files, "*.html"))
}
