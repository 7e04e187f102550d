package threedmol

import (
	"fmt"
	"html/template"
	"io"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render"
)

// Property is one labelled value shown next to a structure.
type Property struct {
	Name  string
	Value string
}

var pageTemplates = template.Must(template.New("begin").Parse(
	`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .Script}}
<script src="{{.Script}}"></script>
{{- end}}
<style>
body { font-family: sans-serif; margin: 2em; }
.alert { padding: 0.75em 1em; margin: 1em 0; border-radius: 4px; }
.warning { background: #fff4e5; color: #663c00; }
.error { background: #fdecea; color: #611a15; }
table.properties td { padding: 0.2em 1em 0.2em 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
`))

func init() {
	template.Must(pageTemplates.New("alert").Parse(
		`<div class="alert {{.Class}}" role="alert">{{.Msg}}</div>
`))
	template.Must(pageTemplates.New("figure").Parse(
		`<figure>
<figcaption>{{.Label}}</figcaption>
{{.View}}</figure>
`))
	template.Must(pageTemplates.New("properties").Parse(
		`<table class="properties">
{{- range .}}
<tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
`))
	template.Must(pageTemplates.New("end").Parse("</body>\n</html>\n"))
}

// Page writes an HTML document to w. It is both the render.Embedder and the
// render.Emitter for the structures shown on it. Write errors are sticky:
// after the first one every method is a no-op and Err reports it.
type Page struct {
	w      io.Writer
	script string
	err    error
}

// NewPage creates a page that loads 3Dmol.js from script.
func NewPage(w io.Writer, script string) *Page {
	return &Page{w: w, script: script}
}

func (p *Page) execute(name string, data any) error {
	if p.err != nil {
		return p.err
	}
	p.err = pageTemplates.ExecuteTemplate(p.w, name, data)
	return p.err
}

// Begin writes the document head.
func (p *Page) Begin(title string) error {
	return p.execute("begin", struct{ Title, Script string }{title, p.script})
}

// Properties writes a two-column table.
func (p *Page) Properties(props []Property) error {
	return p.execute("properties", props)
}

// Show implements render.Embedder. v must come from a Factory.
func (p *Page) Show(v render.View, label string) error {
	tv, ok := v.(*View)
	if !ok {
		return fmt.Errorf("threedmol: cannot embed %T", v)
	}
	html, err := tv.HTML()
	if err != nil {
		return err
	}
	return p.execute("figure", struct {
		Label string
		View  template.HTML
	}{label, html})
}

// Warning implements render.Emitter.
func (p *Page) Warning(msg string) {
	_ = p.execute("alert", struct{ Class, Msg string }{"warning", msg})
}

// Error implements render.Emitter.
func (p *Page) Error(msg string) {
	_ = p.execute("alert", struct{ Class, Msg string }{"error", msg})
}

// End closes the document and returns the first write error, if any.
func (p *Page) End() error {
	return p.execute("end", nil)
}

// Err returns the first write error.
func (p *Page) Err() error {
	return p.err
}
