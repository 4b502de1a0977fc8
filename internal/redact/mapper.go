package redact

import "github.com/sahilr2050/step-by-step-guide-generator/internal/guide"

// Mapper converts rectangles between canonical pixel coordinates of the
// original image and the coordinates of a scaled display surface. X and Y
// scales are independent: the layout policy below happens to keep them
// equal, but nothing here relies on that.
//
// A Mapper is only valid for the surface geometry it was built from.
// Rebuild it whenever the surface is resized or a new image is loaded;
// a stale mapper silently corrupts every conversion.
type Mapper struct {
	scaleX float64
	scaleY float64
}

// NewMapper builds a mapper from the image's natural size and the display
// surface size.
func NewMapper(naturalWidth, naturalHeight, displayWidth, displayHeight float64) Mapper {
	return Mapper{
		scaleX: displayWidth / naturalWidth,
		scaleY: displayHeight / naturalHeight,
	}
}

// FitWidth computes the display size for an image shown at up to maxWidth
// display pixels, height following the original aspect ratio. Images
// narrower than maxWidth render at natural size.
func FitWidth(naturalWidth, naturalHeight, maxWidth float64) (displayWidth, displayHeight float64) {
	displayWidth = naturalWidth
	displayHeight = naturalHeight
	if displayWidth > maxWidth {
		displayWidth = maxWidth
		displayHeight = displayWidth / (naturalWidth / naturalHeight)
	}
	return displayWidth, displayHeight
}

// Scales returns the display-per-canonical scale factors.
func (m Mapper) Scales() (sx, sy float64) {
	return m.scaleX, m.scaleY
}

// ToDisplay converts a canonical rectangle to display coordinates.
func (m Mapper) ToDisplay(r guide.Region) guide.Region {
	return guide.Region{
		X:      r.X * m.scaleX,
		Y:      r.Y * m.scaleY,
		Width:  r.Width * m.scaleX,
		Height: r.Height * m.scaleY,
	}
}

// ToCanonical converts a display rectangle to canonical coordinates.
func (m Mapper) ToCanonical(r guide.Region) guide.Region {
	return guide.Region{
		X:      r.X / m.scaleX,
		Y:      r.Y / m.scaleY,
		Width:  r.Width / m.scaleX,
		Height: r.Height / m.scaleY,
	}
}
