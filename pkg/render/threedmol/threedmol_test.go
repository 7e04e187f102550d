package threedmol

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render"
)

const water = "3\nwater\nO 0.000 0.000 0.117\nH 0.000 0.757 -0.467\nH 0.000 -0.757 -0.467\n"

func TestViewHTML(t *testing.T) {
	f := NewFactory()
	v := f.NewView(400, 300).(*View)
	v.AddModel(water, "xyz")
	v.SetStyle(render.StyleFor("sphere"))
	v.ZoomTo()
	v.Render()

	html, err := v.HTML()
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, `id="viewer_1"`)
	assert.Contains(t, out, "width: 400px; height: 300px;")
	assert.Contains(t, out, `document.getElementById("viewer_1")`)
	assert.Contains(t, out, `{"sphere":{"radius":0.5}}`)
	assert.Contains(t, out, `\nwater\n`)

	add := strings.Index(out, "viewer.addModel(")
	style := strings.Index(out, "viewer.setStyle(")
	zoom := strings.Index(out, "viewer.zoomTo();")
	draw := strings.Index(out, "viewer.render();")
	require.True(t, add >= 0 && style >= 0 && zoom >= 0 && draw >= 0, out)
	assert.True(t, add < style && style < zoom && zoom < draw)

	assert.Equal(t, "viewer_2", f.NewView(1, 1).(*View).ID())
}

func TestViewHTMLEscapesPayload(t *testing.T) {
	v := NewFactory().NewView(10, 10).(*View)
	v.AddModel("1\n</script><script>alert(1)</script>\nH 0 0 0\n", "xyz")
	html, err := v.HTML()
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>alert(1)")
}

func TestPageRendersStructure(t *testing.T) {
	var buf bytes.Buffer
	page := NewPage(&buf, "https://3Dmol.org/build/3Dmol-min.js")
	require.NoError(t, page.Begin("mol_001"))
	require.NoError(t, page.Properties([]Property{{Name: "Formula", Value: "H2O"}}))

	caps := render.Capabilities{Rendering: true, Embedding: true}
	render.New(caps, NewFactory(), page, page).Render(water, "stick", "mol_001 (H2O)")
	require.NoError(t, page.End())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `<script src="https://3Dmol.org/build/3Dmol-min.js"></script>`)
	assert.Contains(t, out, "<td>Formula</td><td>H2O</td>")
	assert.Contains(t, out, "<figcaption>mol_001 (H2O)</figcaption>")
	assert.Contains(t, out, "viewer.render();")
	assert.True(t, strings.HasSuffix(out, "</html>\n"))
}

func TestPageMessages(t *testing.T) {
	var buf bytes.Buffer
	page := NewPage(&buf, "")
	render.New(render.Capabilities{}, NewFactory(), page, page).Render(water, "stick", "x")
	page.Warning("No <data>")

	out := buf.String()
	assert.Contains(t, out, `class="alert error"`)
	assert.Contains(t, out, render.CapabilityRendering)
	assert.Contains(t, out, "No &lt;data&gt;")
	assert.NotContains(t, out, "<figure>")
}

type fakeView struct{}

func (fakeView) AddModel(string, string) {}
func (fakeView) SetStyle(render.Style)   {}
func (fakeView) ZoomTo()                 {}
func (fakeView) Render()                 {}

func TestPageRejectsForeignView(t *testing.T) {
	page := NewPage(&bytes.Buffer{}, "")
	assert.Error(t, page.Show(fakeView{}, "x"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("broken pipe") }

func TestPageStickyWriteError(t *testing.T) {
	page := NewPage(failingWriter{}, "")
	assert.Error(t, page.Begin("x"))
	page.Error("ignored")
	assert.Error(t, page.End())
	assert.EqualError(t, page.Err(), page.End().Error())
}
