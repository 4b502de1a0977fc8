package redact

import "github.com/sahilr2050/step-by-step-guide-generator/internal/guide"

// Preset is a reusable redaction area expressed as fractions of the image,
// for common screenshot zones that tend to carry identifying content.
type Preset struct {
	Name   string
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Presets available for one-click redaction.
var Presets = map[string]Preset{
	"header":      {Name: "Header", Top: 0, Left: 0, Width: 1, Height: 0.1},
	"footer":      {Name: "Footer", Top: 0.9, Left: 0, Width: 1, Height: 0.1},
	"sidebar":     {Name: "Sidebar", Top: 0.1, Left: 0, Width: 0.2, Height: 0.8},
	"profileArea": {Name: "Profile Area", Top: 0, Left: 0.8, Width: 0.2, Height: 0.1},
}

// Apply scales the preset to the image and returns the canonical region.
func (p Preset) Apply(imageWidth, imageHeight float64) guide.Region {
	return guide.Region{
		X:      p.Left * imageWidth,
		Y:      p.Top * imageHeight,
		Width:  p.Width * imageWidth,
		Height: p.Height * imageHeight,
	}
}
