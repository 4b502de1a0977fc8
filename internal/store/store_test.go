package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "guides.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGuideRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	g := guide.New("g1", "Checkout walkthrough", []string{"shop", "demo"})
	g.Steps = append(g.Steps, guide.Step{
		URL:   "https://example.com/cart",
		Title: "Cart",
		ElementInfo: guide.ElementDescriptor{
			TagName:    "button",
			Text:       "Pay now",
			Attributes: map[string]string{"id": "pay"},
			Path:       "html > body:nth-child(2) > button#pay",
		},
		ScreenshotRef: guide.BlobKey("g1", 0),
	})
	require.NoError(t, s.PutGuide(ctx, g))

	got, err := s.GetGuide(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g.Name, got.Name)
	assert.Equal(t, g.Tags, got.Tags)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "Pay now", got.Steps[0].ElementInfo.Text)
	assert.Equal(t, guide.BlobKey("g1", 0), got.Steps[0].ScreenshotRef)
}

func TestGetGuideMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetGuide(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutGuideLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	g := guide.New("g1", "First", nil)
	require.NoError(t, s.PutGuide(ctx, g))
	g.Name = "Second"
	require.NoError(t, s.PutGuide(ctx, g))

	got, err := s.GetGuide(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
}

func TestListGuidesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	older := guide.New("a", "Older", nil)
	newer := guide.New("b", "Newer", nil)
	newer.DateCreated = older.DateCreated.Add(1)
	require.NoError(t, s.PutGuide(ctx, older))
	require.NoError(t, s.PutGuide(ctx, newer))

	got, err := s.ListGuides(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Newer", got[0].Name)
	assert.Equal(t, "Older", got[1].Name)
}

func TestBlobRoundTripAndRangeDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutBlob(ctx, guide.BlobKey("g1", 0), []byte("one")))
	require.NoError(t, s.PutBlob(ctx, guide.BlobKey("g1", 1), []byte("two")))
	require.NoError(t, s.PutBlob(ctx, guide.BlobKey("g1", 1).Blurred(), []byte("two-blurred")))
	require.NoError(t, s.PutBlob(ctx, guide.BlobKey("g2", 0), []byte("other")))

	data, err := s.GetBlob(ctx, guide.BlobKey("g1", 1))
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	require.NoError(t, s.DeleteBlobsForGuide(ctx, "g1"))

	for _, key := range []guide.BlobRef{
		guide.BlobKey("g1", 0),
		guide.BlobKey("g1", 1),
		guide.BlobKey("g1", 1).Blurred(),
	} {
		data, err := s.GetBlob(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, data, "key %s should be gone", key)
	}

	data, err = s.GetBlob(ctx, guide.BlobKey("g2", 0))
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), data, "other guides untouched")
}

func TestDeleteGuideMissingIsNoOp(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.DeleteGuide(context.Background(), "nope"))
}
