// Package render displays molecular structures in an embedded 3D viewer.
//
// A Renderer validates a coordinate payload, builds a view through a
// ViewFactory, styles it and hands it to an Embedder. Problems are reported
// through an Emitter as user-visible warnings and errors; Render itself never
// fails.
//
// Which parts of the viewer stack are usable is decided once at startup by
// Probe. The Renderer only reads the resulting Capabilities.
package render

import (
	"go.uber.org/zap"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/metrics"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/xyz"
)

// Default viewer dimensions in pixels.
const (
	DefaultWidth  = 400
	DefaultHeight = 400
)

// Names of the optional capabilities, as shown to users.
const (
	CapabilityRendering = "3D rendering (3Dmol.js)"
	CapabilityEmbedding = "viewer embedding"
)

// Render outcomes used as metric labels.
const (
	outcomeRendered   = "rendered"
	outcomeEmpty      = "empty"
	outcomeCapability = "capability_missing"
	outcomeUnparsed   = "rendered_unparsed"
	outcomeEmbedError = "embed_failed"
)

// View is a 3D viewer instance.
type View interface {
	AddModel(data, format string)
	SetStyle(style Style)
	ZoomTo()
	Render()
}

// ViewFactory creates views of a given size.
type ViewFactory interface {
	NewView(width, height int) View
}

// Embedder places a finished view in the output under a caption.
type Embedder interface {
	Show(v View, label string) error
}

// Emitter shows messages to the user.
type Emitter interface {
	Warning(msg string)
	Error(msg string)
}

// Renderer draws XYZ payloads. It is cheap to construct; build one per
// output.
type Renderer struct {
	caps     Capabilities
	factory  ViewFactory
	embedder Embedder
	emitter  Emitter
	width    int
	height   int
	logger   *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize overrides the viewer size.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithLogger sets the renderer logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a renderer.
func New(caps Capabilities, factory ViewFactory, embedder Embedder, emitter Emitter, opts ...Option) *Renderer {
	r := &Renderer{
		caps:     caps,
		factory:  factory,
		embedder: embedder,
		emitter:  emitter,
		width:    DefaultWidth,
		height:   DefaultHeight,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render shows the XYZ payload text in style under label.
//
// An empty payload produces a warning and no view. A missing capability
// produces an error message and no view. Any other payload is handed to the
// viewer as is; text that is not a single-frame XYZ block (a trajectory, say)
// is logged but still drawn.
func (r *Renderer) Render(text, style, label string) {
	if text == "" {
		r.emitter.Warning("No structure data available")
		r.observe(outcomeEmpty, style)
		return
	}

	if missing := r.caps.Missing(); missing != "" {
		r.emitter.Error(missing + " is not available. Install the viewer components to display structures.")
		r.observe(outcomeCapability, style)
		return
	}

	fields := []zap.Field{zap.String("label", label), zap.String("style", style)}
	outcome := outcomeRendered
	if s, err := xyz.Parse(text); err != nil {
		outcome = outcomeUnparsed
		r.logger.Debug("structure payload is not plain xyz, passing through", append(fields, zap.Error(err))...)
	} else {
		fields = append(fields, zap.String("formula", s.Formula()), zap.Int("atoms", len(s.Atoms)))
	}

	view := r.factory.NewView(r.width, r.height)
	view.AddModel(text, "xyz")
	view.SetStyle(StyleFor(style))
	view.ZoomTo()
	view.Render()

	if err := r.embedder.Show(view, label); err != nil {
		r.emitter.Error("Failed to display structure: " + err.Error())
		r.observe(outcomeEmbedError, style)
		r.logger.Warn("failed to embed view",
			zap.String("label", label),
			zap.Error(err))
		return
	}

	r.observe(outcome, style)
	r.logger.Debug("rendered structure", fields...)
}

func (r *Renderer) observe(outcome, style string) {
	metrics.Renders.WithLabelValues(outcome, styleLabel(style)).Inc()
}
