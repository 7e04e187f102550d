// Package threedmol renders views as 3Dmol.js HTML snippets and assembles
// them into standalone pages.
package threedmol

import (
	"bytes"
	"html/template"
	"strconv"
	"sync/atomic"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render"
)

type opKind int

const (
	opAddModel opKind = iota
	opSetStyle
	opZoomTo
	opRender
)

type op struct {
	Kind   opKind
	Data   string
	Format string
	Style  render.Style
}

// IsAddModel and friends let the template switch on op kinds.
func (o op) IsAddModel() bool { return o.Kind == opAddModel }
func (o op) IsSetStyle() bool { return o.Kind == opSetStyle }
func (o op) IsZoomTo() bool   { return o.Kind == opZoomTo }
func (o op) IsRender() bool   { return o.Kind == opRender }

// View records viewer calls and replays them as 3Dmol.js statements.
type View struct {
	id     string
	width  int
	height int
	ops    []op
}

func (v *View) AddModel(data, format string) {
	v.ops = append(v.ops, op{Kind: opAddModel, Data: data, Format: format})
}

func (v *View) SetStyle(style render.Style) {
	v.ops = append(v.ops, op{Kind: opSetStyle, Style: style})
}

func (v *View) ZoomTo() { v.ops = append(v.ops, op{Kind: opZoomTo}) }

func (v *View) Render() { v.ops = append(v.ops, op{Kind: opRender}) }

// ID returns the DOM id of the viewer element.
func (v *View) ID() string { return v.id }

var viewTemplate = template.Must(template.New("view").Parse(
	`<div id="{{.ID}}" class="viewer" style="width: {{.Width}}px; height: {{.Height}}px; position: relative;"></div>
<script>
(function() {
  var viewer = $3Dmol.createViewer(document.getElementById({{.ID}}), {backgroundColor: "white"});
{{- range .Ops}}
{{- if .IsAddModel}}
  viewer.addModel({{.Data}}, {{.Format}});
{{- else if .IsSetStyle}}
  viewer.setStyle({}, {{.Style}});
{{- else if .IsZoomTo}}
  viewer.zoomTo();
{{- else if .IsRender}}
  viewer.render();
{{- end}}
{{- end}}
})();
</script>
`))

// HTML returns the viewer element and the script that draws it.
func (v *View) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	err := viewTemplate.Execute(&buf, struct {
		ID            string
		Width, Height int
		Ops           []op
	}{v.id, v.width, v.height, v.ops})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Factory creates Views with ids unique to the factory.
type Factory struct {
	seq atomic.Int64
}

// NewFactory returns a view factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewView implements render.ViewFactory.
func (f *Factory) NewView(width, height int) render.View {
	return &View{
		id:     "viewer_" + strconv.FormatInt(f.seq.Add(1), 10),
		width:  width,
		height: height,
	}
}
