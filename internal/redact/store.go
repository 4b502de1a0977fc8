// Package redact implements the image redaction engine: an authoritative
// region model in canonical pixel coordinates, the transform between the
// canonical buffer and a scaled display surface, gesture handling for the
// editing surface, and the compositor that bakes regions into a blurred
// copy of the original screenshot.
package redact

import (
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// RegionID identifies a region within a Store for update and deletion.
// IDs are never reused within one Store.
type RegionID int

// Store holds the redaction regions for one image, in canonical pixel
// coordinates of the original screenshot. It is the single source of truth
// for region geometry; rendering surfaces project from it and never the
// reverse. List order is creation order.
//
// Out-of-range geometry is clamped rather than rejected: the store backs
// live dragging, where transient out-of-bounds values arrive on every
// pointer move.
type Store struct {
	imageWidth  float64
	imageHeight float64
	nextID      RegionID
	regions     []storedRegion
}

type storedRegion struct {
	id     RegionID
	region guide.Region
}

// NewStore creates a region store bounded by the canonical image size.
func NewStore(imageWidth, imageHeight float64) *Store {
	return &Store{imageWidth: imageWidth, imageHeight: imageHeight}
}

// Bounds returns the canonical image size the store clamps against.
func (s *Store) Bounds() (width, height float64) {
	return s.imageWidth, s.imageHeight
}

// Add inserts a region, clamped to the image bounds, and returns its id.
func (s *Store) Add(r guide.Region) RegionID {
	id := s.nextID
	s.nextID++
	s.regions = append(s.regions, storedRegion{id: id, region: s.clamp(r)})
	return id
}

// Remove deletes the region with the given id. Unknown ids are a no-op.
func (s *Store) Remove(id RegionID) {
	for i, sr := range s.regions {
		if sr.id == id {
			s.regions = append(s.regions[:i], s.regions[i+1:]...)
			return
		}
	}
}

// Patch carries the fields of a region to change. Nil fields keep their
// current value.
type Patch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64
}

// Update applies a partial geometry change to a region, clamping the
// result to the image bounds. Unknown ids are a no-op.
func (s *Store) Update(id RegionID, p Patch) {
	for i, sr := range s.regions {
		if sr.id != id {
			continue
		}
		r := sr.region
		if p.X != nil {
			r.X = *p.X
		}
		if p.Y != nil {
			r.Y = *p.Y
		}
		if p.Width != nil {
			r.Width = *p.Width
		}
		if p.Height != nil {
			r.Height = *p.Height
		}
		s.regions[i].region = s.clamp(r)
		return
	}
}

// Get returns the current geometry of a region.
func (s *Store) Get(id RegionID) (guide.Region, bool) {
	for _, sr := range s.regions {
		if sr.id == id {
			return sr.region, true
		}
	}
	return guide.Region{}, false
}

// List returns the regions in creation order.
func (s *Store) List() []guide.Region {
	out := make([]guide.Region, len(s.regions))
	for i, sr := range s.regions {
		out[i] = sr.region
	}
	return out
}

// IDs returns the region ids in creation order.
func (s *Store) IDs() []RegionID {
	out := make([]RegionID, len(s.regions))
	for i, sr := range s.regions {
		out[i] = sr.id
	}
	return out
}

// Clear removes every region.
func (s *Store) Clear() {
	s.regions = nil
}

// Len reports the number of regions.
func (s *Store) Len() int {
	return len(s.regions)
}

// clamp forces a region into the image: positive size of at least one
// canonical pixel, origin within the image, right/bottom edges inside it.
func (s *Store) clamp(r guide.Region) guide.Region {
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	if r.Width > s.imageWidth {
		r.Width = s.imageWidth
	}
	if r.Height > s.imageHeight {
		r.Height = s.imageHeight
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > s.imageWidth {
		r.X = s.imageWidth - r.Width
	}
	if r.Y+r.Height > s.imageHeight {
		r.Y = s.imageHeight - r.Height
	}
	return r
}
