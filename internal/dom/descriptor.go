// Package dom derives element descriptors from a parsed snapshot of the
// page DOM. The snapshot is the serialized live document, so positional
// selectors computed here match what the page showed at capture time.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// Describe builds the structural summary and path selector for an element
// node. The path is best-effort: it is built from the DOM as it exists now
// and may not uniquely resolve after the page mutates.
func Describe(n *html.Node) guide.ElementDescriptor {
	return guide.ElementDescriptor{
		TagName:    strings.ToLower(n.Data),
		Text:       strings.TrimSpace(textContent(n)),
		Attributes: attributes(n),
		Path:       Path(n),
	}
}

// Path walks from the node to the document root and joins one selector
// segment per level with " > ". A segment is "tag#id" when the element has
// an id, "tag:nth-child(i)" when its parent has more than one element
// child (i is the 1-based position among those children), and the bare tag
// name otherwise.
func Path(n *html.Node) string {
	var segments []string
	for n != nil && n.Type == html.ElementNode {
		selector := strings.ToLower(n.Data)
		if id := attr(n, "id"); id != "" {
			selector += "#" + id
		} else if index, total := childPosition(n); total > 1 {
			selector += fmt.Sprintf(":nth-child(%d)", index)
		}
		segments = append([]string{selector}, segments...)
		n = n.Parent
	}
	return strings.Join(segments, " > ")
}

// FindByChildPath resolves a chain of element-child indices, starting at
// the document root. It is how a target token reported by the page script
// (which records the clicked element's position at each level) is mapped
// back onto the parsed snapshot. Returns nil when the path no longer
// resolves, which callers treat as "element gone".
func FindByChildPath(root *html.Node, indices []int) *html.Node {
	n := firstElementChild(root)
	for _, idx := range indices {
		if n == nil {
			return nil
		}
		child := firstElementChild(n)
		for i := 0; child != nil && i < idx; i++ {
			child = nextElementSibling(child)
		}
		if child == nil {
			return nil
		}
		n = child
	}
	return n
}

// ChildPath is the inverse of FindByChildPath, used in tests and for
// re-deriving tokens from parsed documents.
func ChildPath(n *html.Node) []int {
	var indices []int
	for n != nil && n.Parent != nil && n.Parent.Type == html.ElementNode {
		idx := 0
		for sib := n.Parent.FirstChild; sib != nil && sib != n; sib = sib.NextSibling {
			if sib.Type == html.ElementNode {
				idx++
			}
		}
		indices = append([]int{idx}, indices...)
		n = n.Parent
	}
	return indices
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func attributes(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// childPosition returns the node's 1-based position among its parent's
// element children and the number of those children.
func childPosition(n *html.Node) (index, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		total++
		if sib == n {
			index = total
		}
	}
	return index, total
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}
