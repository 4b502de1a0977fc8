package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/guides"
	"github.com/sahilr2050/step-by-step-guide-generator/internal/store"
)

type env struct {
	store  *store.Store
	server *httptest.Server
}

func newEnv(t *testing.T, recorder Recorder) *env {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "guides.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := guides.New(st, nil)
	srv := httptest.NewServer(NewServer(svc, st, st, recorder, nil, 800, nil).Routes())
	t.Cleanup(srv.Close)
	return &env{store: st, server: srv}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGuideLifecycle(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.do(t, http.MethodPost, "/api/guides", map[string]any{"name": "My guide", "tags": []string{"demo"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[guide.Guide](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "My guide", created.Name)

	resp = e.do(t, http.MethodPut, "/api/guides/"+created.ID+"/name", map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodPut, "/api/guides/"+created.ID+"/tags", map[string]any{"tags": []string{"a", "b"}})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/api/guides/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeJSON[guide.Guide](t, resp)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	resp = e.do(t, http.MethodGet, "/api/guides", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeJSON[[]guide.Guide](t, resp)
	assert.Len(t, all, 1)

	resp = e.do(t, http.MethodDelete, "/api/guides/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/api/guides/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMissingGuideIs404(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.do(t, http.MethodGet, "/api/guides/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodPut, "/api/guides/nope/name", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func seedGuideWithSteps(t *testing.T, e *env, id string, n int) {
	t.Helper()
	ctx := context.Background()
	g := guide.New(id, "Guide "+id, nil)
	for i := 0; i < n; i++ {
		ref := guide.BlobKey(id, i)
		require.NoError(t, e.store.PutBlob(ctx, ref, testPNG(t, 40, 30)))
		g.Steps = append(g.Steps, guide.Step{
			Title:         "Page",
			ElementInfo:   guide.ElementDescriptor{TagName: "button", Text: "B"},
			ScreenshotRef: ref,
		})
	}
	require.NoError(t, e.store.PutGuide(ctx, g))
}

func TestStepDeleteAndMove(t *testing.T) {
	e := newEnv(t, nil)
	seedGuideWithSteps(t, e, "g1", 3)

	resp := e.do(t, http.MethodDelete, "/api/guides/g1/steps/1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/api/guides/g1/steps/1/move", map[string]int{"to": 0})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	g, err := e.store.GetGuide(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, g.Steps, 2)
	assert.Equal(t, guide.BlobKey("g1", 2), g.Steps[0].ScreenshotRef)
}

func TestPutRegionsCommitsRedaction(t *testing.T) {
	e := newEnv(t, nil)
	seedGuideWithSteps(t, e, "g1", 1)

	resp := e.do(t, http.MethodPut, "/api/guides/g1/steps/0/regions", map[string]any{
		"regions": []guide.Region{{X: 5, Y: 5, Width: 10, Height: 10}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx := context.Background()
	g, err := e.store.GetGuide(ctx, "g1")
	require.NoError(t, err)
	step := g.Steps[0]
	require.Len(t, step.BlurRegions, 1)
	assert.Equal(t, step.ScreenshotRef.Blurred(), step.BlurredScreenshotRef)

	blurred, err := e.store.GetBlob(ctx, step.BlurredScreenshotRef)
	require.NoError(t, err)
	assert.NotNil(t, blurred)

	// Clearing the regions clears the blurred variant with them.
	resp = e.do(t, http.MethodPut, "/api/guides/g1/steps/0/regions", map[string]any{
		"regions": []guide.Region{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	g, err = e.store.GetGuide(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, g.Steps[0].BlurRegions)
	assert.Empty(t, g.Steps[0].BlurredScreenshotRef)
	blurred, err = e.store.GetBlob(ctx, step.ScreenshotRef.Blurred())
	require.NoError(t, err)
	assert.Nil(t, blurred)
}

func TestPutRegionsWithoutScreenshotIsConflict(t *testing.T) {
	e := newEnv(t, nil)
	g := guide.New("g1", "No image", nil)
	g.Steps = []guide.Step{{Title: "t"}}
	require.NoError(t, e.store.PutGuide(context.Background(), g))

	resp := e.do(t, http.MethodPut, "/api/guides/g1/steps/0/regions", map[string]any{
		"regions": []guide.Region{{X: 0, Y: 0, Width: 5, Height: 5}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestStepImageVariants(t *testing.T) {
	e := newEnv(t, nil)
	seedGuideWithSteps(t, e, "g1", 1)

	resp := e.do(t, http.MethodPut, "/api/guides/g1/steps/0/regions", map[string]any{
		"regions": []guide.Region{{X: 0, Y: 0, Width: 20, Height: 20}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx := context.Background()
	original, err := e.store.GetBlob(ctx, guide.BlobKey("g1", 0))
	require.NoError(t, err)
	redacted, err := e.store.GetBlob(ctx, guide.BlobKey("g1", 0).Blurred())
	require.NoError(t, err)
	require.NotEqual(t, original, redacted)

	resp = e.do(t, http.MethodGet, "/api/guides/g1/steps/0/image", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp)
	assert.Equal(t, redacted, body, "default variant is the redacted image")

	resp = e.do(t, http.MethodGet, "/api/guides/g1/steps/0/image?variant=original", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = readAll(t, resp)
	assert.Equal(t, original, body)
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExportEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	seedGuideWithSteps(t, e, "g1", 1)

	resp := e.do(t, http.MethodGet, "/api/guides/g1/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	md := string(readAll(t, resp))
	assert.Contains(t, md, "# Guide g1")
	assert.Contains(t, md, "## Step 1")

	resp = e.do(t, http.MethodGet, "/api/guides/g1/export?format=html", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := string(readAll(t, resp))
	assert.Contains(t, doc, "<h1>Guide g1</h1>")

	resp = e.do(t, http.MethodGet, "/api/guides/g1/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

type stubRecorder struct {
	state   capture.State
	guideID string
	steps   int
	events  *capture.Fanout
	started []string
	stopped bool
	err     error
}

func (s *stubRecorder) Start(_ context.Context, guideID string) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, guideID)
	s.state = capture.StateArmed
	s.guideID = guideID
	return nil
}
func (s *stubRecorder) Stop()                   { s.stopped = true; s.state = capture.StateIdle }
func (s *stubRecorder) State() capture.State    { return s.state }
func (s *stubRecorder) GuideID() string         { return s.guideID }
func (s *stubRecorder) StepCount() int          { return s.steps }
func (s *stubRecorder) Events() *capture.Fanout { return s.events }

func TestRecordingWithoutBrowserIs503(t *testing.T) {
	e := newEnv(t, nil)
	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/recording"},
		{http.MethodPost, "/api/recording/stop"},
		{http.MethodGet, "/api/recording/events"},
	} {
		resp := e.do(t, probe.method, probe.path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, probe.path)
		resp.Body.Close()
	}
}

func TestRecordingControl(t *testing.T) {
	rec := &stubRecorder{events: capture.NewFanout()}
	e := newEnv(t, rec)

	resp := e.do(t, http.MethodPost, "/api/recording/start", map[string]string{"guideId": "g1"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []string{"g1"}, rec.started)

	resp = e.do(t, http.MethodGet, "/api/recording", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "armed", status["state"])
	assert.Equal(t, "g1", status["guideId"])

	resp = e.do(t, http.MethodPost, "/api/recording/stop", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, rec.stopped)
}

func TestRecordingStartErrors(t *testing.T) {
	rec := &stubRecorder{events: capture.NewFanout(), err: capture.ErrGuideNotFound}
	e := newEnv(t, rec)

	resp := e.do(t, http.MethodPost, "/api/recording/start", map[string]string{"guideId": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	rec.err = capture.ErrAlreadyRecording
	resp = e.do(t, http.MethodPost, "/api/recording/start", map[string]string{"guideId": "g1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
