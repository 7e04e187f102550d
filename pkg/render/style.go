package render

// Style is a 3Dmol.js style object, keyed by representation.
type Style map[string]map[string]any

// Style names understood by StyleFor.
const (
	StyleStick   = "stick"
	StyleSphere  = "sphere"
	StyleCartoon = "cartoon"
)

// StyleFor maps a style name to its 3Dmol.js style object. Unknown names get ball
// and stick.
func StyleFor(name string) Style {
	switch name {
	case StyleStick:
		return Style{"stick": {}}
	case StyleSphere:
		return Style{"sphere": {"radius": 0.5}}
	case StyleCartoon:
		return Style{"cartoon": {}}
	default:
		return Style{"stick": {}, "sphere": {"radius": 0.3}}
	}
}

// styleLabel bounds metric label cardinality.
func styleLabel(name string) string {
	switch name {
	case StyleStick, StyleSphere, StyleCartoon:
		return name
	default:
		return "default"
	}
}
