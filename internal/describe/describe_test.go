package describe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

type fakeGuides struct {
	mu   sync.Mutex
	data map[string]*guide.Guide
}

func (f *fakeGuides) GetGuide(_ context.Context, id string) (*guide.Guide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.data[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.Steps = append([]guide.Step(nil), g.Steps...)
	return &cp, nil
}

func (f *fakeGuides) PutGuide(_ context.Context, g *guide.Guide) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[g.ID] = g
	return nil
}

func TestRateLimiterRefill(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(2, 10*time.Second)
	r.now = func() time.Time { return now }
	r.lastRefill = now

	assert.True(t, r.GetToken())
	assert.True(t, r.GetToken())
	assert.False(t, r.GetToken(), "bucket drained")

	now = now.Add(25 * time.Second)
	assert.True(t, r.GetToken(), "two tokens refilled")
	assert.True(t, r.GetToken())
	assert.False(t, r.GetToken(), "refill caps at the bucket size")
}

func newTestProcessor(t *testing.T, endpoint string, guides GuideStore) *Processor {
	t.Helper()
	p, err := NewProcessor(Config{Endpoint: endpoint, MaxRetries: 2}, guides, nil)
	require.NoError(t, err)
	p.sleep = func(time.Duration) {}
	return p
}

func TestProcessGuideFillsMissingDescriptions(t *testing.T) {
	var gotPrompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		gotPrompts = append(gotPrompts, req.Messages[1].Content)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  Click the pay button.  "}},
			},
		})
	}))
	defer srv.Close()

	g := guide.New("g1", "Test", nil)
	g.Steps = []guide.Step{
		{ElementInfo: guide.ElementDescriptor{TagName: "button", Text: "Pay"}},
		{CustomDescription: "Already written"},
	}
	store := &fakeGuides{data: map[string]*guide.Guide{"g1": g}}

	p := newTestProcessor(t, srv.URL, store)
	require.NoError(t, p.ProcessGuide(context.Background(), "g1"))

	got, _ := store.GetGuide(context.Background(), "g1")
	assert.Equal(t, "Click the pay button.", got.Steps[0].CustomDescription)
	assert.Equal(t, "Already written", got.Steps[1].CustomDescription, "existing descriptions untouched")
	require.Len(t, gotPrompts, 1, "only the undescribed step hits the endpoint")
	assert.Contains(t, gotPrompts[0], `"tagName": "button"`)
}

func TestProcessGuideFailureLeavesStepUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := guide.New("g1", "Test", nil)
	g.Steps = []guide.Step{{ElementInfo: guide.ElementDescriptor{TagName: "button", Text: "Pay"}}}
	store := &fakeGuides{data: map[string]*guide.Guide{"g1": g}}

	p := newTestProcessor(t, srv.URL, store)
	require.NoError(t, p.ProcessGuide(context.Background(), "g1"))

	got, _ := store.GetGuide(context.Background(), "g1")
	assert.Empty(t, got.Steps[0].CustomDescription)
}

func TestProcessGuideRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Click the link."}},
			},
		})
	}))
	defer srv.Close()

	g := guide.New("g1", "Test", nil)
	g.Steps = []guide.Step{{ElementInfo: guide.ElementDescriptor{TagName: "a", Text: "More"}}}
	store := &fakeGuides{data: map[string]*guide.Guide{"g1": g}}

	p := newTestProcessor(t, srv.URL, store)
	require.NoError(t, p.ProcessGuide(context.Background(), "g1"))

	got, _ := store.GetGuide(context.Background(), "g1")
	assert.Equal(t, "Click the link.", got.Steps[0].CustomDescription)
	assert.Equal(t, 2, calls)
}

func TestNewProcessorRequiresEndpoint(t *testing.T) {
	_, err := NewProcessor(Config{}, &fakeGuides{}, nil)
	assert.Error(t, err)
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Endpoint: "http://localhost:8080"}.Enabled())
}
