package redact

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// ErrNoScreenshot is returned when a step has no image to edit.
var ErrNoScreenshot = errors.New("step has no screenshot")

// ErrNotFound is returned when the guide or step to edit does not exist.
var ErrNotFound = errors.New("guide or step not found")

// GuideStore is the view of guide persistence the editor needs. A missing
// guide reads as (nil, nil).
type GuideStore interface {
	GetGuide(ctx context.Context, id string) (*guide.Guide, error)
	PutGuide(ctx context.Context, g *guide.Guide) error
}

// BlobStore is the view of blob persistence the editor needs. A missing
// key reads as (nil, nil).
type BlobStore interface {
	GetBlob(ctx context.Context, key guide.BlobRef) ([]byte, error)
	PutBlob(ctx context.Context, key guide.BlobRef, data []byte) error
	DeleteBlob(ctx context.Context, key guide.BlobRef) error
}

// Editor is one image-editing session for one step. It loads the original
// screenshot (never the redacted variant, so redactions stay re-editable),
// seeds the region store from the step's saved regions, and commits
// regions plus the regenerated blurred image back to the step atomically.
type Editor struct {
	guides GuideStore
	blobs  BlobStore
	comp   Compositor

	guideID   string
	stepIndex int
	ref       guide.BlobRef
	original  []byte

	naturalWidth  float64
	naturalHeight float64

	store      *Store
	mapper     Mapper
	controller *Controller
}

// OpenEditor starts an editing session for the given step. maxDisplayWidth
// is the widest the editing surface will render the image; the display
// height follows the original aspect ratio.
func OpenEditor(ctx context.Context, guides GuideStore, blobs BlobStore, guideID string, stepIndex int, maxDisplayWidth float64) (*Editor, error) {
	g, err := guides.GetGuide(ctx, guideID)
	if err != nil {
		return nil, fmt.Errorf("load guide: %w", err)
	}
	if g == nil || stepIndex < 0 || stepIndex >= len(g.Steps) {
		return nil, ErrNotFound
	}
	step := &g.Steps[stepIndex]

	e := &Editor{
		guides:    guides,
		blobs:     blobs,
		comp:      NewCompositor(),
		guideID:   guideID,
		stepIndex: stepIndex,
	}

	if err := e.loadOriginal(ctx, g, step); err != nil {
		return nil, err
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(e.original))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot header: %w", err)
	}
	e.naturalWidth = float64(cfg.Width)
	e.naturalHeight = float64(cfg.Height)

	e.store = NewStore(e.naturalWidth, e.naturalHeight)
	for _, r := range step.BlurRegions {
		e.store.Add(r)
	}

	displayW, displayH := FitWidth(e.naturalWidth, e.naturalHeight, maxDisplayWidth)
	e.mapper = NewMapper(e.naturalWidth, e.naturalHeight, displayW, displayH)
	e.controller = NewController(e.store, e.mapper, displayW, displayH, nil, nil)

	return e, nil
}

// loadOriginal fetches the unredacted screenshot, migrating a legacy
// inline data-URL payload into the blob store if that is all the step has.
func (e *Editor) loadOriginal(ctx context.Context, g *guide.Guide, step *guide.Step) error {
	if step.ScreenshotRef != "" {
		data, err := e.blobs.GetBlob(ctx, step.ScreenshotRef)
		if err != nil {
			return fmt.Errorf("load screenshot blob: %w", err)
		}
		if data != nil {
			e.ref = step.ScreenshotRef
			e.original = data
			return nil
		}
	}

	if step.LegacyScreenshot != "" {
		data, err := decodeDataURL(step.LegacyScreenshot)
		if err != nil {
			return fmt.Errorf("decode legacy screenshot: %w", err)
		}
		ref := guide.BlobKey(e.guideID, e.stepIndex)
		if err := e.blobs.PutBlob(ctx, ref, data); err != nil {
			return fmt.Errorf("migrate legacy screenshot: %w", err)
		}
		step.ScreenshotRef = ref
		step.LegacyScreenshot = ""
		step.LegacyBlurredScreenshot = ""
		if err := e.guides.PutGuide(ctx, g); err != nil {
			return fmt.Errorf("persist migrated guide: %w", err)
		}
		e.ref = ref
		e.original = data
		return nil
	}

	return ErrNoScreenshot
}

// Store exposes the session's region store.
func (e *Editor) Store() *Store { return e.store }

// Controller exposes the session's gesture controller.
func (e *Editor) Controller() *Controller { return e.controller }

// Mapper exposes the current coordinate mapper.
func (e *Editor) Mapper() Mapper { return e.mapper }

// NaturalSize returns the canonical size of the image being edited.
func (e *Editor) NaturalSize() (w, h float64) {
	return e.naturalWidth, e.naturalHeight
}

// Original returns the unredacted PNG bytes.
func (e *Editor) Original() []byte { return e.original }

// SetRegions replaces the session's regions wholesale, clamping each.
// Used by callers that edit geometry remotely rather than via gestures.
func (e *Editor) SetRegions(regions []guide.Region) {
	e.store.Clear()
	for _, r := range regions {
		e.store.Add(r)
	}
}

// AddPreset adds a preset region scaled to the image.
func (e *Editor) AddPreset(name string) (RegionID, bool) {
	p, ok := Presets[name]
	if !ok {
		return 0, false
	}
	return e.store.Add(p.Apply(e.naturalWidth, e.naturalHeight)), true
}

// Preview composites the current regions without persisting anything.
func (e *Editor) Preview() ([]byte, error) {
	return e.comp.Composite(e.original, e.store.List())
}

// Commit bakes the current regions into a blurred copy of the original,
// stores it under the step's blurred slot, and writes regions and ref to
// the step in one guide read-modify-write. With no regions, both the
// blurred image and the region list are cleared together. Returns false
// without error when the guide or step disappeared concurrently.
func (e *Editor) Commit(ctx context.Context) (bool, error) {
	g, err := e.guides.GetGuide(ctx, e.guideID)
	if err != nil {
		return false, fmt.Errorf("load guide: %w", err)
	}
	if g == nil || e.stepIndex >= len(g.Steps) {
		return false, nil
	}
	step := &g.Steps[e.stepIndex]

	regions := e.store.List()
	if len(regions) == 0 {
		if step.BlurredScreenshotRef != "" {
			if err := e.blobs.DeleteBlob(ctx, step.BlurredScreenshotRef); err != nil {
				return false, fmt.Errorf("delete blurred blob: %w", err)
			}
		}
		step.BlurRegions = nil
		step.BlurredScreenshotRef = ""
	} else {
		blurred, err := e.comp.Composite(e.original, regions)
		if err != nil {
			return false, err
		}
		blurredRef := e.ref.Blurred()
		if err := e.blobs.PutBlob(ctx, blurredRef, blurred); err != nil {
			return false, fmt.Errorf("store blurred blob: %w", err)
		}
		step.BlurRegions = regions
		step.BlurredScreenshotRef = blurredRef
	}

	if err := e.guides.PutGuide(ctx, g); err != nil {
		return false, fmt.Errorf("persist guide: %w", err)
	}
	return true, nil
}

func decodeDataURL(s string) ([]byte, error) {
	_, payload, found := strings.Cut(s, ",")
	if !found {
		return nil, errors.New("malformed data URL")
	}
	return base64.StdEncoding.DecodeString(payload)
}
