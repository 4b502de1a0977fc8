// Package capture owns the recording state machine: it turns a raw user
// click reported by the page into exactly one persisted step, with
// debouncing, a highlight pause for the screenshot, and re-dispatch of the
// original action afterwards.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means no recording is active.
	StateIdle State = iota
	// StateArmed means recording is on and the session waits for the
	// next qualifying interaction.
	StateArmed
	// StateCapturing means one interaction is mid-pipeline. Further
	// interactions are dropped, not queued.
	StateCapturing
)

// Target is an opaque token identifying the interacted element. It is
// produced by the Surface implementation and handed back to it unchanged.
type Target any

// Surface is the page being recorded. Every method is best-effort: the
// underlying DOM node may be gone by the time a call lands, and
// implementations must treat that as a no-op, not a fault.
type Surface interface {
	// Highlight renders a transient, non-interactive overlay aligned to
	// the target's bounding box.
	Highlight(ctx context.Context, target Target) error
	// RemoveHighlight tears the overlay down. Removing a highlight that
	// is already gone is a no-op.
	RemoveHighlight(ctx context.Context) error
	// Describe computes the element descriptor for the target.
	Describe(ctx context.Context, target Target) (guide.ElementDescriptor, error)
	// Location reports the page's current URL and title.
	Location(ctx context.Context) (url, title string, err error)
	// Redispatch replays the original interaction on the target so the
	// page behaves as if it had never been intercepted.
	Redispatch(ctx context.Context, target Target) error
}

// Screenshotter captures the visible surface. It must resolve in bounded
// time; a nil image (or an error) means no screenshot, never a crash.
type Screenshotter interface {
	CaptureVisible(ctx context.Context) ([]byte, error)
}

// GuideStore is the view of guide persistence the session needs. A
// missing guide reads as (nil, nil).
type GuideStore interface {
	GetGuide(ctx context.Context, id string) (*guide.Guide, error)
	PutGuide(ctx context.Context, g *guide.Guide) error
}

// BlobStore stores screenshot payloads.
type BlobStore interface {
	PutBlob(ctx context.Context, key guide.BlobRef, data []byte) error
}

// Config carries the pipeline timings.
type Config struct {
	// Debounce is the minimum interval between accepted interactions;
	// anything sooner is dropped outright.
	Debounce time.Duration
	// SettleDelay is the pause between painting the highlight and taking
	// the screenshot. Capturing earlier silently omits the highlight.
	SettleDelay time.Duration
	// HighlightHold is how long the highlight stays up after the step is
	// persisted.
	HighlightHold time.Duration
}

// DefaultConfig returns the recording timings the extension shipped with.
func DefaultConfig() Config {
	return Config{
		Debounce:      time.Second,
		SettleDelay:   300 * time.Millisecond,
		HighlightHold: 200 * time.Millisecond,
	}
}

// ErrAlreadyRecording is returned by Start when a session is active.
var ErrAlreadyRecording = errors.New("a recording session is already active")

// ErrGuideNotFound is returned by Start for an unknown guide.
var ErrGuideNotFound = errors.New("guide not found")

// Session is the capture state machine for one guide recording. One
// session records at a time; a second qualifying interaction arriving
// while one is mid-pipeline is dropped by the debounce/latch check.
type Session struct {
	cfg     Config
	guides  GuideStore
	blobs   BlobStore
	screens Screenshotter
	surface Surface
	events  *Fanout
	logger  *log.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu           sync.Mutex
	state        State
	guideID      string
	stepCount    int
	lastAccepted time.Time
}

// NewSession wires a capture session. surface and screens may be swapped
// per tab via Attach before Start.
func NewSession(cfg Config, guides GuideStore, blobs BlobStore, screens Screenshotter, surface Surface, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		cfg:     cfg,
		guides:  guides,
		blobs:   blobs,
		screens: screens,
		surface: surface,
		events:  NewFanout(),
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Attach binds the session to a page and a screenshot capability. It must
// be called before Start when the session was built without them; the
// usual reason is that the page implementation needs the session as its
// interaction handler, so neither can be constructed first.
func (s *Session) Attach(surface Surface, screens Screenshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surface
	s.screens = screens
}

// Events exposes the step-count notification stream.
func (s *Session) Events() *Fanout { return s.events }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GuideID reports the guide being recorded, empty when idle.
func (s *Session) GuideID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guideID
}

// StepCount reports the number of steps in the recorded guide, including
// steps from a previous recording of the same guide.
func (s *Session) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCount
}

// Start arms the session for the guide. The step counter resumes from the
// guide's existing step count, so pausing and resuming a recording does
// not renumber anything.
func (s *Session) Start(ctx context.Context, guideID string) error {
	g, err := s.guides.GetGuide(ctx, guideID)
	if err != nil {
		return fmt.Errorf("load guide: %w", err)
	}
	if g == nil {
		return ErrGuideNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrAlreadyRecording
	}
	s.state = StateArmed
	s.guideID = guideID
	s.stepCount = len(g.Steps)
	s.lastAccepted = time.Time{}
	s.logger.Info("recording started", "guide", guideID, "steps", s.stepCount)
	return nil
}

// Stop latches the session off. An in-flight capture completes, but no
// new interaction is accepted from this point on.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	s.logger.Info("recording stopped", "guide", s.guideID, "steps", s.stepCount)
	s.guideID = ""
}

// HandleInteraction runs the capture pipeline for one qualifying
// interaction. It is safe to call from any goroutine; the debounce gate
// and the processing latch ensure at most one pipeline is in flight and
// that rapid-fire duplicates are dropped, not queued. Failures degrade to
// "step without image" or "step dropped" and are never surfaced to the
// page.
func (s *Session) HandleInteraction(ctx context.Context, target Target) {
	s.mu.Lock()
	if s.state != StateArmed {
		s.mu.Unlock()
		return
	}
	now := s.now()
	if !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) < s.cfg.Debounce {
		s.mu.Unlock()
		return
	}
	s.lastAccepted = now
	s.state = StateCapturing
	guideID := s.guideID
	s.mu.Unlock()

	// The page script already suppressed the click's default behavior;
	// from here the pipeline owns the interaction.
	if err := s.surface.Highlight(ctx, target); err != nil {
		s.logger.Debug("highlight failed", "err", err)
	}
	s.sleep(ctx, s.cfg.SettleDelay)

	img := s.captureImage(ctx)

	desc, err := s.surface.Describe(ctx, target)
	if err != nil {
		s.logger.Warn("describe failed, recording step without element info", "err", err)
	}

	pageURL, pageTitle, err := s.surface.Location(ctx)
	if err != nil {
		s.logger.Debug("location failed", "err", err)
	}

	step := guide.Step{
		Timestamp:   now.UTC(),
		URL:         pageURL,
		Title:       pageTitle,
		ElementInfo: desc,
	}

	count, persisted := s.persistStep(ctx, guideID, step, img)

	// Persistence has begun, so release the latch: the next interaction
	// may start its debounce window while we finish cosmetics below.
	s.mu.Lock()
	if s.state == StateCapturing {
		s.state = StateArmed
	}
	if persisted && s.guideID == guideID {
		s.stepCount = count
	}
	s.mu.Unlock()

	if persisted {
		s.events.Publish(StepEvent{GuideID: guideID, Count: count})
	}

	s.sleep(ctx, s.cfg.HighlightHold)
	if err := s.surface.RemoveHighlight(ctx); err != nil {
		s.logger.Debug("highlight removal failed", "err", err)
	}

	// Replay the original action last, after cleanup and after the latch
	// is released, so its side effects (navigation included) cannot be
	// captured as a spurious second step.
	if err := s.surface.Redispatch(ctx, target); err != nil {
		s.logger.Debug("redispatch failed", "err", err)
	}
}

// captureImage asks the screenshot capability for the visible surface.
// Any failure means "no image", never an aborted step.
func (s *Session) captureImage(ctx context.Context) []byte {
	img, err := s.screens.CaptureVisible(ctx)
	if err != nil {
		s.logger.Warn("screenshot failed, recording step without image", "err", err)
		return nil
	}
	return img
}

// persistStep appends the step to the guide in one read-modify-write.
// The screenshot is keyed by the guide's current step count, matching the
// "{guideId}_{n}" namespace. A concurrently deleted guide drops the step
// silently.
func (s *Session) persistStep(ctx context.Context, guideID string, step guide.Step, img []byte) (count int, persisted bool) {
	g, err := s.guides.GetGuide(ctx, guideID)
	if err != nil {
		s.logger.Error("step dropped: guide read failed", "guide", guideID, "err", err)
		return 0, false
	}
	if g == nil {
		s.logger.Warn("step dropped: guide deleted during recording", "guide", guideID)
		return 0, false
	}

	if img != nil {
		ref := guide.BlobKey(guideID, len(g.Steps))
		if err := s.blobs.PutBlob(ctx, ref, img); err != nil {
			s.logger.Error("screenshot blob write failed, recording step without image", "err", err)
		} else {
			step.ScreenshotRef = ref
		}
	}

	g.Steps = append(g.Steps, step)
	if err := s.guides.PutGuide(ctx, g); err != nil {
		s.logger.Error("step dropped: guide write failed", "guide", guideID, "err", err)
		return 0, false
	}
	return len(g.Steps), true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
