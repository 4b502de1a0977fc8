package redact

import "github.com/sahilr2050/step-by-step-guide-generator/internal/guide"

// DefaultMinSize is the smallest width/height a resize gesture can produce,
// in display pixels. Prevents degenerate zero-area regions.
const DefaultMinSize = 20

// DefaultHandleSize is the side of the square resize hit-target anchored at
// a region's bottom-right corner, in display pixels.
const DefaultHandleSize = 12

type gestureMode int

const (
	gestureNone gestureMode = iota
	gestureDrag
	gestureResize
)

// Controller turns pointer gestures on the display surface into region
// store mutations. Exactly one gesture is active at a time, chosen at
// pointer-down by whether the pointer landed on a region body (drag) or
// its resize handle (resize). All pointer coordinates are display-surface
// coordinates.
type Controller struct {
	store  *Store
	mapper Mapper

	surfaceWidth  float64
	surfaceHeight float64

	minSize    float64
	handleSize float64

	mode   gestureMode
	active RegionID

	// drag: pointer offset from the region's display top-left.
	grabX, grabY float64
	// resize: pointer position and region display size at gesture start.
	startX, startY float64
	startW, startH float64

	// onChange fires after each applied move, for live preview rendering.
	// onCommit fires on pointer-up after a gesture and on deletion; it is
	// the authoritative recomposite and is never skipped.
	onChange func()
	onCommit func()
}

// NewController builds a gesture controller over a region store projected
// through the given mapper onto a surface of the given display size.
func NewController(store *Store, mapper Mapper, surfaceWidth, surfaceHeight float64, onChange, onCommit func()) *Controller {
	return &Controller{
		store:         store,
		mapper:        mapper,
		surfaceWidth:  surfaceWidth,
		surfaceHeight: surfaceHeight,
		minSize:       DefaultMinSize,
		handleSize:    DefaultHandleSize,
		onChange:      onChange,
		onCommit:      onCommit,
	}
}

// SetViewport replaces the mapper and surface bounds after the editing
// surface resizes or a new image loads. Any gesture in progress is
// abandoned, since its captured display geometry no longer means anything.
func (c *Controller) SetViewport(mapper Mapper, surfaceWidth, surfaceHeight float64) {
	c.mapper = mapper
	c.surfaceWidth = surfaceWidth
	c.surfaceHeight = surfaceHeight
	c.mode = gestureNone
}

// HitRegion reports which region (if any) a display point lands on, for
// hover feedback. The topmost (most recently created) region wins.
func (c *Controller) HitRegion(x, y float64) (RegionID, bool) {
	ids := c.store.IDs()
	for i := len(ids) - 1; i >= 0; i-- {
		r, ok := c.store.Get(ids[i])
		if !ok {
			continue
		}
		if contains(c.mapper.ToDisplay(r), x, y) {
			return ids[i], true
		}
	}
	return 0, false
}

// PointerDown begins a gesture when the point lands on a region. Landing
// on the resize handle starts a resize; anywhere else on the region body
// starts a drag.
func (c *Controller) PointerDown(x, y float64) {
	ids := c.store.IDs()
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		r, ok := c.store.Get(id)
		if !ok {
			continue
		}
		disp := c.mapper.ToDisplay(r)
		if c.inHandle(disp, x, y) {
			c.mode = gestureResize
			c.active = id
			c.startX, c.startY = x, y
			c.startW, c.startH = disp.Width, disp.Height
			return
		}
		if contains(disp, x, y) {
			c.mode = gestureDrag
			c.active = id
			c.grabX = x - disp.X
			c.grabY = y - disp.Y
			return
		}
	}
}

// PointerMove applies the active gesture for the new pointer position.
func (c *Controller) PointerMove(x, y float64) {
	switch c.mode {
	case gestureDrag:
		c.moveActive(x, y)
	case gestureResize:
		c.resizeActive(x, y)
	}
}

// PointerUp ends the active gesture. The final recomposite runs here so
// the committed geometry always matches the rendered pixels, even when a
// live recomposite just ran for the last move.
func (c *Controller) PointerUp() {
	hadGesture := c.mode != gestureNone
	c.mode = gestureNone
	if hadGesture && c.onCommit != nil {
		c.onCommit()
	}
}

// Delete removes a region and recomposites. It is invoked from a dedicated
// hit-target and is deliberately unreachable from drag/resize recognition.
func (c *Controller) Delete(id RegionID) {
	if c.mode != gestureNone && c.active == id {
		c.mode = gestureNone
	}
	c.store.Remove(id)
	if c.onCommit != nil {
		c.onCommit()
	}
}

func (c *Controller) moveActive(x, y float64) {
	r, ok := c.store.Get(c.active)
	if !ok {
		c.mode = gestureNone
		return
	}
	disp := c.mapper.ToDisplay(r)

	newX := clampf(x-c.grabX, 0, c.surfaceWidth-disp.Width)
	newY := clampf(y-c.grabY, 0, c.surfaceHeight-disp.Height)

	canon := c.mapper.ToCanonical(guide.Region{X: newX, Y: newY, Width: disp.Width, Height: disp.Height})
	c.store.Update(c.active, Patch{X: &canon.X, Y: &canon.Y})
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) resizeActive(x, y float64) {
	r, ok := c.store.Get(c.active)
	if !ok {
		c.mode = gestureNone
		return
	}
	disp := c.mapper.ToDisplay(r)

	newW := maxf(c.minSize, c.startW+(x-c.startX))
	newH := maxf(c.minSize, c.startH+(y-c.startY))

	// The right/bottom edges stay inside the surface.
	newW = minf(newW, c.surfaceWidth-disp.X)
	newH = minf(newH, c.surfaceHeight-disp.Y)

	canon := c.mapper.ToCanonical(guide.Region{X: disp.X, Y: disp.Y, Width: newW, Height: newH})
	c.store.Update(c.active, Patch{Width: &canon.Width, Height: &canon.Height})
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) inHandle(disp guide.Region, x, y float64) bool {
	return x >= disp.X+disp.Width-c.handleSize && x <= disp.X+disp.Width &&
		y >= disp.Y+disp.Height-c.handleSize && y <= disp.Y+disp.Height
}

func contains(r guide.Region, x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func clampf(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
