// Package browser drives a real Chrome instance over the DevTools protocol.
// It provides the page-side half of recording: the injected click
// interceptor, the highlight overlay, screenshots, and the synthetic
// re-dispatch of the user's original action.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configures the browser process.
type Options struct {
	// Headless runs Chrome without a window. Recording is normally headed
	// since a human is the one clicking.
	Headless bool
	// NoSandbox disables the Chrome sandbox, needed in some containers.
	NoSandbox bool
	// UserDataDir keeps a persistent profile so logins survive restarts.
	// Empty means a throwaway profile.
	UserDataDir string
	// ScreenshotTimeout bounds a single capture call.
	ScreenshotTimeout time.Duration
}

// DefaultOptions returns headed-browser defaults suitable for recording.
func DefaultOptions() Options {
	return Options{
		Headless:          false,
		ScreenshotTimeout: 5 * time.Second,
	}
}

// Browser owns the Chrome allocator and the shared browser context. Tabs
// for individual recordings are derived from it.
type Browser struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
}

// New launches Chrome. Close must be called to tear the process down.
func New(opts Options) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces launch failures here instead
	// of on the first recording.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &Browser{
		opts: opts,
		ctx:  browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

// NewTab opens a fresh tab context derived from the shared browser.
func (b *Browser) NewTab() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(b.ctx)
}

// Close shuts the browser process down.
func (b *Browser) Close() {
	b.cancel()
}
