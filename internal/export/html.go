package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// HTML renders the guide as a standalone HTML document. Custom step
// descriptions are treated as markdown; generated descriptions are plain
// text and get escaped.
func HTML(g *guide.Guide) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(g.Name))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(g.Name))
	fmt.Fprintf(&b, "<p><em>Created: %s</em></p>\n", g.DateCreated.Format("1/2/2006"))

	if len(g.Steps) == 0 {
		b.WriteString("<p><em>No steps recorded in this guide</em></p>\n</body>\n</html>\n")
		return b.Bytes(), nil
	}

	for i := range g.Steps {
		step := &g.Steps[i]
		fmt.Fprintf(&b, "<h2>Step %d</h2>\n", i+1)

		if step.CustomDescription != "" {
			if err := goldmark.Convert([]byte(step.CustomDescription), &b); err != nil {
				return nil, fmt.Errorf("render description for step %d: %w", i+1, err)
			}
		} else {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(step.Description()))
		}

		if step.URL != "" {
			fmt.Fprintf(&b, "<p><strong>URL:</strong> <a href=%q>%s</a></p>\n",
				step.URL, html.EscapeString(step.URL))
		}
		if step.Title != "" {
			fmt.Fprintf(&b, "<p><strong>Page Title:</strong> %s</p>\n", html.EscapeString(step.Title))
		}
		if hasImage(step) {
			fmt.Fprintf(&b, "<img src=%q alt=\"Screenshot for Step %d\">\n", ImageFilename(i), i+1)
		}
		b.WriteString("<hr>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}
