package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/dom"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// InteractionHandler receives one call per intercepted click.
type InteractionHandler interface {
	HandleInteraction(ctx context.Context, target capture.Target)
}

// clickEvent is the payload the page script reports for one click. The
// child path locates the element in the document tree by child indices,
// starting under the document element.
type clickEvent struct {
	Token     string  `json:"token"`
	ChildPath []int   `json:"childPath"`
	ClientX   float64 `json:"clientX"`
	ClientY   float64 `json:"clientY"`
}

// Recorder wires one browser tab to an interaction handler. It installs
// the click interceptor on every document the tab loads, so navigations
// re-arm automatically, and it implements the page capabilities the
// capture pipeline needs.
type Recorder struct {
	tab     context.Context
	opts    Options
	handler InteractionHandler
	logger  *log.Logger
}

// NewRecorder creates a recorder for the tab. Attach must be called before
// the tab navigates anywhere worth recording.
func NewRecorder(tab context.Context, opts Options, handler InteractionHandler, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{tab: tab, opts: opts, handler: handler, logger: logger}
}

// Attach registers the click binding and injects the recorder script into
// the current document and every future one.
func (r *Recorder) Attach() error {
	chromedp.ListenTarget(r.tab, func(ev interface{}) {
		call, ok := ev.(*runtime.EventBindingCalled)
		if !ok || call.Name != clickBinding {
			return
		}
		var click clickEvent
		if err := json.Unmarshal([]byte(call.Payload), &click); err != nil {
			r.logger.Warn("malformed click payload", "err", err)
			return
		}
		// The CDP event loop must not block on the capture pipeline.
		go r.handler.HandleInteraction(r.tab, click)
	})

	err := chromedp.Run(r.tab,
		runtime.AddBinding(clickBinding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(recorderScript).Do(ctx)
			return err
		}),
		chromedp.Evaluate(recorderScript, nil),
	)
	if err != nil {
		return fmt.Errorf("attach recorder: %w", err)
	}
	return nil
}

// Navigate loads the URL in the recorded tab and waits for the body.
func (r *Recorder) Navigate(url string) error {
	if err := chromedp.Run(r.tab, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Highlight paints the overlay over the clicked element. A gone element is
// a silent no-op on the page side.
func (r *Recorder) Highlight(_ context.Context, target capture.Target) error {
	click, ok := target.(clickEvent)
	if !ok {
		return errors.New("unknown target type")
	}
	return chromedp.Run(r.tab, chromedp.Evaluate(fmt.Sprintf(highlightScript, click.Token), nil))
}

// RemoveHighlight tears the overlay down.
func (r *Recorder) RemoveHighlight(context.Context) error {
	return chromedp.Run(r.tab, chromedp.Evaluate(removeHighlightScript, nil))
}

// Describe fetches the current document, resolves the clicked element by
// its child path, and computes the element descriptor from the parsed
// tree. An element that already left the document is an error; the caller
// records the step without element info.
func (r *Recorder) Describe(_ context.Context, target capture.Target) (guide.ElementDescriptor, error) {
	click, ok := target.(clickEvent)
	if !ok {
		return guide.ElementDescriptor{}, errors.New("unknown target type")
	}

	var pageHTML string
	if err := chromedp.Run(r.tab, chromedp.OuterHTML("html", &pageHTML)); err != nil {
		return guide.ElementDescriptor{}, fmt.Errorf("fetch document: %w", err)
	}
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return guide.ElementDescriptor{}, fmt.Errorf("parse document: %w", err)
	}
	node := dom.FindByChildPath(root, click.ChildPath)
	if node == nil {
		return guide.ElementDescriptor{}, errors.New("element left the document")
	}
	return dom.Describe(node), nil
}

// Location reports the tab's current URL and title.
func (r *Recorder) Location(context.Context) (url, title string, err error) {
	err = chromedp.Run(r.tab, chromedp.Location(&url), chromedp.Title(&title))
	return url, title, err
}

// Redispatch replays the suppressed click with the replay guard up, so the
// interceptor lets it through and the page reacts as if never intercepted.
func (r *Recorder) Redispatch(_ context.Context, target capture.Target) error {
	click, ok := target.(clickEvent)
	if !ok {
		return errors.New("unknown target type")
	}
	return chromedp.Run(r.tab, chromedp.Evaluate(fmt.Sprintf(redispatchScript, click.Token), nil))
}

// CaptureVisible screenshots the visible viewport as PNG, bounded by the
// configured per-call timeout.
func (r *Recorder) CaptureVisible(context.Context) ([]byte, error) {
	ctx := r.tab
	if r.opts.ScreenshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ScreenshotTimeout)
		defer cancel()
	}
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}
