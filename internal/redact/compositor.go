package redact

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// Compositor bakes redaction regions into a copy of the original image.
// Each region is blurred from the original pixels under it, so overlapping
// regions produce one blurred result instead of compounding. The transform
// is deterministic: the same original and regions reproduce the same
// output.
type Compositor struct {
	// Sigma is the Gaussian blur radius applied per pass.
	Sigma float64
	// Passes is how many times the blur is applied to each region.
	Passes int
}

// NewCompositor returns a compositor with the default blur strength, tuned
// to destroy legibility of typical text at screenshot resolution.
func NewCompositor() Compositor {
	return Compositor{Sigma: 5, Passes: 3}
}

// Composite decodes a PNG screenshot, redacts the regions, and re-encodes
// losslessly. With no regions the original bytes are returned unchanged.
func (c Compositor) Composite(original []byte, regions []guide.Region) ([]byte, error) {
	if len(regions) == 0 {
		return original, nil
	}

	src, err := png.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	out := c.CompositeImage(src, regions)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode redacted screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// CompositeImage redacts the regions on a decoded image. The source image
// is not modified.
func (c Compositor) CompositeImage(src image.Image, regions []guide.Region) image.Image {
	out := imaging.Clone(src)
	bounds := src.Bounds()

	for _, region := range regions {
		rect := pixelRect(region, bounds)
		if rect.Empty() {
			continue
		}

		// Always cut from the source so overlaps don't double-blur.
		sub := imaging.Crop(src, rect)
		for i := 0; i < c.Passes; i++ {
			sub = imaging.Blur(sub, c.Sigma)
		}
		out = imaging.Paste(out, sub, rect.Min)
	}
	return out
}

// pixelRect rounds a canonical region to whole pixels and intersects it
// with the image bounds.
func pixelRect(r guide.Region, bounds image.Rectangle) image.Rectangle {
	rect := image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	)
	return rect.Add(bounds.Min).Intersect(bounds)
}
