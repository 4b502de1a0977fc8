// Package export renders guides to shareable documents: markdown, HTML,
// and an on-disk bundle with the screenshot files alongside.
package export

import (
	"fmt"
	"strings"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// ImageFilename is the name a step's screenshot gets inside an exported
// bundle, 1-based to match the visible step numbering.
func ImageFilename(index int) string {
	return fmt.Sprintf("step-%d-screenshot.png", index+1)
}

// hasImage reports whether the step has any screenshot to export, stored
// or legacy inline.
func hasImage(s *guide.Step) bool {
	return s.ImageRef() != "" || s.LegacyBlurredScreenshot != "" || s.LegacyScreenshot != ""
}

// Markdown renders the guide as a markdown document. Image links point at
// the bundle filenames; exporting the document alone leaves them dangling
// on purpose.
func Markdown(g *guide.Guide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", g.Name)
	fmt.Fprintf(&b, "*Created: %s*\n\n", g.DateCreated.Format("1/2/2006"))

	if len(g.Steps) == 0 {
		b.WriteString("*No steps recorded in this guide*\n")
		return b.String()
	}

	for i := range g.Steps {
		step := &g.Steps[i]
		fmt.Fprintf(&b, "## Step %d\n\n", i+1)
		fmt.Fprintf(&b, "%s\n\n", step.Description())
		if step.URL != "" {
			fmt.Fprintf(&b, "**URL:** %s\n\n", step.URL)
		}
		if step.Title != "" {
			fmt.Fprintf(&b, "**Page Title:** %s\n\n", step.Title)
		}
		if hasImage(step) {
			fmt.Fprintf(&b, "![Screenshot for Step %d](%s)\n\n", i+1, ImageFilename(i))
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// Slug builds the base filename for a guide's exported documents.
func Slug(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if slug == "" {
		slug = "guide"
	}
	return slug
}
