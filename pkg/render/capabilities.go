package render

import (
	"net/url"
	"os"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/config"
)

// Capabilities records which optional viewer components are usable.
type Capabilities struct {
	Rendering bool `json:"rendering"`
	Embedding bool `json:"embedding"`
}

// Missing names the first unavailable capability, or returns "".
func (c Capabilities) Missing() string {
	switch {
	case !c.Rendering:
		return CapabilityRendering
	case !c.Embedding:
		return CapabilityEmbedding
	default:
		return ""
	}
}

// Probe inspects the viewer configuration. Rendering needs an http(s) script
// URL or a readable local script file; embedding needs a positive viewer
// size. A disabled viewer has neither.
func Probe(cfg config.ViewerConfig) Capabilities {
	if !cfg.Enabled {
		return Capabilities{}
	}
	return Capabilities{
		Rendering: scriptAvailable(cfg.ScriptURL),
		Embedding: cfg.Width > 0 && cfg.Height > 0,
	}
}

func scriptAvailable(ref string) bool {
	if ref == "" {
		return false
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return u.Host != ""
	}
	info, err := os.Stat(ref)
	return err == nil && !info.IsDir()
}
