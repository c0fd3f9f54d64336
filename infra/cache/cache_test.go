package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrestNiraj12/tapestry/domain"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func item(uri string, date time.Time, body string) domain.Item {
	it := domain.NewItem(uri, date)
	it.Body = body
	return it
}

// find returns the cached item of feed with uri.
func find(t *testing.T, c *Cache, feed, uri string) (domain.Item, bool) {
	t.Helper()
	entries, err := c.List(context.Background(), Query{Feed: feed})
	require.NoError(t, err)
	for _, e := range entries {
		if e.Item.URI == uri {
			return e.Item, true
		}
	}
	return domain.Item{}, false
}

func TestSaveAndListNewestFirst(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	n, err := c.Save(ctx, "news", []domain.Item{
		item("https://a/1", base, "one"),
		item("https://a/3", base.Add(2*time.Hour), "three"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.Save(ctx, "social", []domain.Item{item("https://b/2", base.Add(time.Hour), "two")})
	require.NoError(t, err)

	entries, err := c.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "https://a/3", entries[0].Item.URI)
	assert.Equal(t, "social", entries[1].Feed)
	assert.Equal(t, "one", entries[2].Item.Body)
	assert.True(t, entries[2].Item.Date.Equal(base))
}

func TestSaveUpsertsByFeedAndURI(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := c.Save(ctx, "news", []domain.Item{item("https://a/1", date, "draft")})
	require.NoError(t, err)
	_, err = c.Save(ctx, "news", []domain.Item{item("https://a/1", date, "final")})
	require.NoError(t, err)
	_, err = c.Save(ctx, "mirror", []domain.Item{item("https://a/1", date, "mirrored")})
	require.NoError(t, err)

	got, ok := find(t, c, "news", "https://a/1")
	require.True(t, ok)
	assert.Equal(t, "final", got.Body)

	entries, err := c.List(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListFilterAndLimit(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var items []domain.Item
	for i := 0; i < 5; i++ {
		items = append(items, item("https://a/"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), ""))
	}
	_, err := c.Save(ctx, "news", items)
	require.NoError(t, err)
	_, err = c.Save(ctx, "other", []domain.Item{item("https://b/x", base.Add(time.Hour), "")})
	require.NoError(t, err)

	entries, err := c.List(ctx, Query{Feed: "news", Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://a/e", entries[0].Item.URI)
	assert.Equal(t, "https://a/d", entries[1].Item.URI)

	entries, err = c.List(ctx, Query{Before: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://a/b", entries[0].Item.URI)

	feeds, err := c.Feeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "other"}, feeds)
}

func TestSaveRejectsInvalidItem(t *testing.T) {
	c := openTestCache(t)
	_, err := c.Save(context.Background(), "news", []domain.Item{{URI: "https://a/1"}})
	assert.ErrorIs(t, err, domain.ErrMissingDate)

	_, err = c.Save(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrMissingName)
}

func TestAttachmentsSurviveCache(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	it := item("https://a/1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "")
	media := domain.NewMediaAttachment("https://a/1.png")
	media.MimeType = "image/png"
	it.Attachments = []domain.Attachment{media, domain.NewLinkAttachment("https://example.com")}

	_, err := c.Save(ctx, "news", []domain.Item{it})
	require.NoError(t, err)

	got, ok := find(t, c, "news", it.URI)
	require.True(t, ok)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, domain.KindMedia, got.Attachments[0].Kind())
	assert.Equal(t, domain.KindLink, got.Attachments[1].Kind())
}

func TestPruneAndDeleteFeed(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := c.Save(ctx, "news", []domain.Item{item("https://a/old", old, ""), item("https://a/new", recent, "")})
	require.NoError(t, err)

	n, err := c.Prune(ctx, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok := find(t, c, "news", "https://a/old")
	assert.False(t, ok)
	_, ok = find(t, c, "news", "https://a/new")
	assert.True(t, ok)

	require.NoError(t, c.DeleteFeed(ctx, "news"))
	entries, err := c.List(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
