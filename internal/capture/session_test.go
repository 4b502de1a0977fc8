package capture

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

type memStore struct {
	mu    sync.Mutex
	data  map[string]*guide.Guide
	blobs map[guide.BlobRef][]byte
}

func newMemStore() *memStore {
	return &memStore{
		data:  map[string]*guide.Guide{},
		blobs: map[guide.BlobRef][]byte{},
	}
}

func (m *memStore) GetGuide(_ context.Context, id string) (*guide.Guide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.Steps = append([]guide.Step(nil), g.Steps...)
	return &cp, nil
}

func (m *memStore) PutGuide(_ context.Context, g *guide.Guide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[g.ID] = g
	return nil
}

func (m *memStore) PutBlob(_ context.Context, key guide.BlobRef, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

// rig is a fully faked capture environment with a manual clock and a call
// log that records pipeline ordering.
type rig struct {
	session *Session
	store   *memStore

	mu    sync.Mutex
	now   time.Time
	calls []string

	shotErr   error
	shotData  []byte
	describe  guide.ElementDescriptor
	onDescr   func() // hook invoked during Describe
	descrErr  error
	pageURL   string
	pageTitle string
}

func (r *rig) log(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *rig) advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = r.now.Add(d)
}

func (r *rig) Highlight(context.Context, Target) error { r.log("highlight"); return nil }
func (r *rig) RemoveHighlight(context.Context) error   { r.log("remove-highlight"); return nil }
func (r *rig) Redispatch(context.Context, Target) error {
	r.log("redispatch")
	return nil
}

func (r *rig) Describe(context.Context, Target) (guide.ElementDescriptor, error) {
	r.log("describe")
	if r.onDescr != nil {
		r.onDescr()
	}
	return r.describe, r.descrErr
}

func (r *rig) Location(context.Context) (string, string, error) {
	return r.pageURL, r.pageTitle, nil
}

func (r *rig) CaptureVisible(context.Context) ([]byte, error) {
	r.log("screenshot")
	return r.shotData, r.shotErr
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		store:     newMemStore(),
		now:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		shotData:  []byte("png-bytes"),
		pageURL:   "https://example.com/form",
		pageTitle: "Example Form",
		describe: guide.ElementDescriptor{
			TagName:    "button",
			Text:       "Go",
			Attributes: map[string]string{"id": "submit-btn"},
			Path:       "html > body:nth-child(2) > button#submit-btn",
		},
	}
	r.session = NewSession(DefaultConfig(), r.store, r.store, r, r, nil)
	r.session.now = func() time.Time {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.now
	}
	r.session.sleep = func(_ context.Context, d time.Duration) {
		r.log("sleep:" + d.String())
	}
	return r
}

func (r *rig) startRecording(t *testing.T, guideID string) {
	t.Helper()
	require.NoError(t, r.store.PutGuide(context.Background(), guide.New(guideID, "Test guide", nil)))
	require.NoError(t, r.session.Start(context.Background(), guideID))
}

func TestEndToEndSingleClick(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.startRecording(t, "g1")

	events, cancel := r.session.Events().Subscribe()
	defer cancel()

	r.session.HandleInteraction(ctx, "tok-1")

	g, err := r.store.GetGuide(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, g.Steps, 1)

	step := g.Steps[0]
	assert.Equal(t, "Go", step.ElementInfo.Text)
	assert.True(t, strings.HasSuffix(step.ElementInfo.Path, "#submit-btn"))
	assert.Equal(t, guide.BlobKey("g1", 0), step.ScreenshotRef)
	assert.Equal(t, []byte("png-bytes"), r.store.blobs[step.ScreenshotRef])
	assert.Equal(t, "https://example.com/form", step.URL)
	assert.Equal(t, "Example Form", step.Title)

	assert.Equal(t, 1, r.session.StepCount())
	assert.Equal(t, StateArmed, r.session.State())

	select {
	case ev := <-events:
		assert.Equal(t, StepEvent{GuideID: "g1", Count: 1}, ev)
	default:
		t.Fatal("expected a step event")
	}
}

func TestPipelineOrdering(t *testing.T) {
	r := newRig(t)
	r.startRecording(t, "g1")

	r.session.HandleInteraction(context.Background(), "tok")

	cfg := DefaultConfig()
	assert.Equal(t, []string{
		"highlight",
		"sleep:" + cfg.SettleDelay.String(),
		"screenshot",
		"describe",
		"sleep:" + cfg.HighlightHold.String(),
		"remove-highlight",
		"redispatch",
	}, r.calls)
}

func TestDebounceDropsRapidSecondClick(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.startRecording(t, "g1")

	r.session.HandleInteraction(ctx, "first")
	r.advance(400 * time.Millisecond)
	r.session.HandleInteraction(ctx, "second") // inside the debounce window

	g, _ := r.store.GetGuide(ctx, "g1")
	assert.Len(t, g.Steps, 1, "second click must be dropped outright")

	r.advance(700 * time.Millisecond) // past the window now
	r.session.HandleInteraction(ctx, "third")

	g, _ = r.store.GetGuide(ctx, "g1")
	assert.Len(t, g.Steps, 2)
	assert.Equal(t, 2, r.session.StepCount())
}

func TestScreenshotFailureDegradesToStepWithoutImage(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.shotErr = assert.AnError
	r.shotData = nil
	r.startRecording(t, "g1")

	r.session.HandleInteraction(ctx, "tok")

	g, _ := r.store.GetGuide(ctx, "g1")
	require.Len(t, g.Steps, 1)
	assert.Empty(t, g.Steps[0].ScreenshotRef)
	assert.Equal(t, "Go", g.Steps[0].ElementInfo.Text, "descriptor still recorded")
}

func TestGuideDeletedMidPipelineDropsStep(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.startRecording(t, "g1")

	events, cancel := r.session.Events().Subscribe()
	defer cancel()

	// The guide disappears while the pipeline is mid-flight.
	r.onDescr = func() {
		r.store.mu.Lock()
		delete(r.store.data, "g1")
		r.store.mu.Unlock()
	}

	r.session.HandleInteraction(ctx, "tok")

	assert.Equal(t, 0, r.session.StepCount(), "counter not incremented")
	select {
	case <-events:
		t.Fatal("no event for a dropped step")
	default:
	}
	// The pipeline still cleans up and re-dispatches.
	assert.Contains(t, r.calls, "remove-highlight")
	assert.Contains(t, r.calls, "redispatch")
}

func TestStopDuringPipelineDoesNotRearm(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.startRecording(t, "g1")

	r.onDescr = func() { r.session.Stop() }
	r.session.HandleInteraction(ctx, "tok")

	// The in-flight capture completed and persisted its step.
	g, _ := r.store.GetGuide(ctx, "g1")
	assert.Len(t, g.Steps, 1)

	// But the session stays stopped.
	assert.Equal(t, StateIdle, r.session.State())
	r.advance(5 * time.Second)
	r.session.HandleInteraction(ctx, "late")
	g, _ = r.store.GetGuide(ctx, "g1")
	assert.Len(t, g.Steps, 1, "no interactions accepted after stop")
}

func TestStartResumesCounter(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)

	g := guide.New("g1", "Resumable", nil)
	g.Steps = []guide.Step{{Title: "a"}, {Title: "b"}}
	require.NoError(t, r.store.PutGuide(ctx, g))

	require.NoError(t, r.session.Start(ctx, "g1"))
	assert.Equal(t, 2, r.session.StepCount())

	r.session.HandleInteraction(ctx, "tok")
	got, _ := r.store.GetGuide(ctx, "g1")
	require.Len(t, got.Steps, 3)
	assert.Equal(t, guide.BlobKey("g1", 2), got.Steps[2].ScreenshotRef,
		"blob sequence continues from the existing step count")
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)

	assert.ErrorIs(t, r.session.Start(ctx, "missing"), ErrGuideNotFound)

	r.startRecording(t, "g1")
	require.NoError(t, r.store.PutGuide(ctx, guide.New("g2", "Other", nil)))
	assert.ErrorIs(t, r.session.Start(ctx, "g2"), ErrAlreadyRecording)
}

func TestIdleSessionIgnoresInteractions(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	require.NoError(t, r.store.PutGuide(ctx, guide.New("g1", "Test", nil)))

	r.session.HandleInteraction(ctx, "tok")
	g, _ := r.store.GetGuide(ctx, "g1")
	assert.Empty(t, g.Steps)
	assert.Empty(t, r.calls, "idle session runs no pipeline at all")
}

func TestFanoutDropsForSlowSubscriber(t *testing.T) {
	f := NewFanout()
	ch, cancel := f.Subscribe()
	defer cancel()

	for i := 0; i < 40; i++ {
		f.Publish(StepEvent{GuideID: "g", Count: i})
	}
	// The buffer holds 16; the rest were dropped without blocking.
	assert.Len(t, ch, 16)
}
