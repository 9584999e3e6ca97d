// Package templates holds the embedded HTML views and the helpers they use.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"yatube/media"
	"yatube/models"
)

//go:embed views/*.html
var views embed.FS

// Raw HTML in post text is escaped; posts come from any registered user.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"markdown": RenderMarkdown,
		"truncate": models.Truncate,
		"media":    media.URL,
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"now": time.Now,
	}
}

// Load parses every view. Templates are addressed by file name.
func Load() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(views, "views/*.html")
}

func RenderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
