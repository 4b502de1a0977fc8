package guide

import (
	"fmt"
	"strings"
	"time"
)

// ElementDescriptor is a capture-time snapshot of the DOM element a step
// interacted with. It is immutable once captured; Path is advisory debug
// metadata and is not guaranteed to resolve after the DOM changes.
type ElementDescriptor struct {
	TagName    string            `json:"tagName"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
	Path       string            `json:"path"`
}

// BlobRef is an opaque key into the blob store. Keys are namespaced per
// guide as "{guideId}_{sequence}" so a guide's blobs can be range-deleted.
type BlobRef string

// BlobKey builds the blob key for the n-th screenshot of a guide.
func BlobKey(guideID string, sequence int) BlobRef {
	return BlobRef(fmt.Sprintf("%s_%d", guideID, sequence))
}

// GuideID recovers the guide namespace from a blob key.
func (r BlobRef) GuideID() string {
	id, _, _ := strings.Cut(string(r), "_")
	return id
}

// Blurred returns the key under which the redacted variant of a screenshot
// is stored. The original key is never overwritten, so a step can be
// re-edited from the unredacted pixels.
func (r BlobRef) Blurred() BlobRef {
	return r + "_blurred"
}

// Region is a rectangular redaction area in canonical pixel coordinates of
// the original screenshot. Coordinates are kept as float64 because they are
// produced by dividing display positions by scale factors.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Step is one recorded user interaction. BlurredScreenshotRef and
// BlurRegions are mutually derived: the regions describe exactly the
// redactions baked into the blurred image, and both change or clear
// together.
type Step struct {
	Timestamp            time.Time         `json:"timestamp"`
	URL                  string            `json:"url"`
	Title                string            `json:"title"`
	ElementInfo          ElementDescriptor `json:"elementInfo"`
	ScreenshotRef        BlobRef           `json:"screenshotKey,omitempty"`
	BlurredScreenshotRef BlobRef           `json:"blurredScreenshotKey,omitempty"`
	BlurRegions          []Region          `json:"blurRegions,omitempty"`
	CustomDescription    string            `json:"customDescription,omitempty"`

	// Legacy inline payloads from guides recorded before the blob store
	// existed. Migration input only; never written back.
	LegacyScreenshot        string `json:"screenshot,omitempty"`
	LegacyBlurredScreenshot string `json:"blurredScreenshot,omitempty"`
}

// ImageRef returns the ref to display for the step: the redacted variant
// when one exists, otherwise the original.
func (s *Step) ImageRef() BlobRef {
	if s.BlurredScreenshotRef != "" {
		return s.BlurredScreenshotRef
	}
	return s.ScreenshotRef
}

// Guide is a named, ordered collection of recorded steps. The guide record
// is the unit of consistency: every mutation is a whole-record
// read-modify-write.
type Guide struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tags        []string  `json:"tags,omitempty"`
	DateCreated time.Time `json:"dateCreated"`
	Steps       []Step    `json:"steps"`
}

// New creates an empty guide with the given identity.
func New(id, name string, tags []string) *Guide {
	return &Guide{
		ID:          id,
		Name:        name,
		Tags:        tags,
		DateCreated: time.Now().UTC(),
		Steps:       []Step{},
	}
}

// Description returns the step's custom description when set, otherwise a
// description generated from the element descriptor.
func (s *Step) Description() string {
	if s.CustomDescription != "" {
		return s.CustomDescription
	}
	return s.ElementInfo.Describe()
}

// Describe generates a human-readable action description for the element.
func (e ElementDescriptor) Describe() string {
	switch e.TagName {
	case "a":
		label := e.Text
		if label == "" {
			label = e.Attributes["href"]
		}
		return fmt.Sprintf("Click on the link %q", label)
	case "button":
		label := e.Text
		if label == "" {
			label = "Button"
		}
		return fmt.Sprintf("Click on the button %q", label)
	case "input":
		switch e.Attributes["type"] {
		case "submit":
			label := e.Attributes["value"]
			if label == "" {
				label = "Submit"
			}
			return fmt.Sprintf("Click the submit button %q", label)
		case "button":
			label := e.Attributes["value"]
			if label == "" {
				label = "Button"
			}
			return fmt.Sprintf("Click the button %q", label)
		default:
			kind := e.Attributes["type"]
			if kind == "" {
				kind = "input"
			}
			return fmt.Sprintf("Click on the %s field", kind)
		}
	}
	if e.Text != "" {
		return fmt.Sprintf("Click on %q", truncate(e.Text, 50))
	}
	return fmt.Sprintf("Click on the %s element", e.TagName)
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
