package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// BlobStore is the read side of screenshot storage. A missing key reads
// as (nil, nil).
type BlobStore interface {
	GetBlob(ctx context.Context, key guide.BlobRef) ([]byte, error)
}

// Bundle writes a guide's export documents and screenshot files into a
// directory. The redacted screenshot variant is preferred wherever one
// exists.
type Bundle struct {
	outputDir string
	blobs     BlobStore
	mu        sync.Mutex
}

// NewBundle creates the output directory if needed.
func NewBundle(outputDir string, blobs BlobStore) (*Bundle, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Bundle{outputDir: outputDir, blobs: blobs}, nil
}

// Write renders the guide to markdown and HTML and copies each step's
// screenshot next to them. Steps without an image are skipped; a blob
// that went missing since the guide was read is skipped too.
func (b *Bundle) Write(ctx context.Context, g *guide.Guide) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	slug := Slug(g.Name)

	md := Markdown(g)
	if err := os.WriteFile(filepath.Join(b.outputDir, slug+".md"), []byte(md), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}

	doc, err := HTML(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.outputDir, slug+".html"), doc, 0644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	for i := range g.Steps {
		img, err := b.stepImage(ctx, &g.Steps[i])
		if err != nil {
			return fmt.Errorf("load screenshot for step %d: %w", i+1, err)
		}
		if img == nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(b.outputDir, ImageFilename(i)), img, 0644); err != nil {
			return fmt.Errorf("write screenshot for step %d: %w", i+1, err)
		}
	}
	return nil
}

// stepImage resolves the exportable image for a step: the stored redacted
// variant, then the stored original, then a legacy inline payload.
func (b *Bundle) stepImage(ctx context.Context, s *guide.Step) ([]byte, error) {
	if ref := s.ImageRef(); ref != "" {
		img, err := b.blobs.GetBlob(ctx, ref)
		if err != nil || img != nil {
			return img, err
		}
	}
	for _, inline := range []string{s.LegacyBlurredScreenshot, s.LegacyScreenshot} {
		if inline == "" {
			continue
		}
		if img := decodeDataURL(inline); img != nil {
			return img, nil
		}
	}
	return nil, nil
}

// decodeDataURL extracts the payload of a base64 data URL. Anything else
// returns nil.
func decodeDataURL(s string) []byte {
	_, rest, ok := strings.Cut(s, ";base64,")
	if !ok || !strings.HasPrefix(s, "data:") {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil
	}
	return data
}
