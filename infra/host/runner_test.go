package host

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/cache"
	"github.com/CrestNiraj12/tapestry/infra/storage"
)

type funcConnector struct {
	id     string
	verify func(context.Context, app.Session)
	load   func(context.Context, app.Session)
}

func (c funcConnector) ID() string { return c.id }

func (c funcConnector) Verify(ctx context.Context, s app.Session) { c.verify(ctx, s) }

func (c funcConnector) Load(ctx context.Context, s app.Session) { c.load(ctx, s) }

type lookup map[string]app.Connector

func (l lookup) Lookup(id string) (app.Connector, bool) {
	c, ok := l[id]
	return c, ok
}

type stubRequester struct{ body string }

func (s stubRequester) SendRequest(context.Context, app.Request) (string, error) { return s.body, nil }

type stubIcons struct{}

func (stubIcons) LookupIcon(context.Context, string) (string, error) { return "", nil }

var day = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestRunner(t *testing.T, c app.Connector, opts ...RunnerOption) (*Runner, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	opts = append([]RunnerOption{
		WithRequesterFactory(func(domain.Feed) app.Requester { return stubRequester{body: "<rss/>"} }),
	}, opts...)
	return NewRunner(lookup{c.ID(): c}, store, stubIcons{}, opts...), store
}

func feedFor(id string) domain.Feed {
	return domain.Feed{Name: "f-" + id, Connector: id, Site: "https://example.com", Variables: map[string]string{"includeReplies": "false"}}
}

func TestLoad_CollectsBatchesUntilComplete(t *testing.T) {
	c := funcConnector{id: "batches", load: func(ctx context.Context, s app.Session) {
		s.ProcessResults([]domain.Item{domain.NewItem("u1", day)}, false)
		s.ProcessResults([]domain.Item{domain.NewItem("u2", day)}, true)
	}}
	r, _ := newTestRunner(t, c)

	res := r.Load(context.Background(), feedFor("batches"))
	require.NoError(t, res.Err)
	assert.True(t, res.Complete)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "u1", res.Items[0].URI)
	assert.NotEmpty(t, res.RunID)
}

func TestLoad_DropsInvalidAndDeduplicates(t *testing.T) {
	c := funcConnector{id: "dups", load: func(ctx context.Context, s app.Session) {
		first := domain.NewItem("u1", day)
		first.Title = "first"
		second := domain.NewItem("u1", day)
		second.Title = "second"
		s.ProcessResults([]domain.Item{first, {URI: "no-date"}, domain.NewItem("u2", day), second}, true)
	}}
	r, _ := newTestRunner(t, c)

	res := r.Load(context.Background(), feedFor("dups"))
	require.NoError(t, res.Err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "second", res.Items[0].Title)
	assert.Equal(t, "u2", res.Items[1].URI)
}

func TestLoad_IgnoresReportsAfterTerminal(t *testing.T) {
	c := funcConnector{id: "late", load: func(ctx context.Context, s app.Session) {
		s.ProcessResults([]domain.Item{domain.NewItem("u1", day)}, true)
		s.ProcessError(errors.New("too late"))
		s.ProcessResults([]domain.Item{domain.NewItem("u2", day)}, true)
	}}
	r, _ := newTestRunner(t, c)

	res := r.Load(context.Background(), feedFor("late"))
	require.NoError(t, res.Err)
	assert.Len(t, res.Items, 1)
}

func TestLoad_ErrorIsWrapped(t *testing.T) {
	c := funcConnector{id: "denied", load: func(ctx context.Context, s app.Session) {
		s.ProcessError(domain.ErrUnauthorized)
	}}
	r, _ := newTestRunner(t, c)

	res := r.Load(context.Background(), feedFor("denied"))
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, domain.ErrUnauthorized)
	var cerr *domain.ConnectorError
	require.ErrorAs(t, res.Err, &cerr)
	assert.Equal(t, "f-denied", cerr.Feed)
	assert.Equal(t, "load", cerr.Op)
}

func TestLoad_TimeoutKeepsPartialResults(t *testing.T) {
	c := funcConnector{id: "slow", load: func(ctx context.Context, s app.Session) {
		s.ProcessResults([]domain.Item{domain.NewItem("u1", day)}, false)
		<-ctx.Done()
	}}
	r, _ := newTestRunner(t, c, WithTimeout(20*time.Millisecond))

	res := r.Load(context.Background(), feedFor("slow"))
	assert.ErrorIs(t, res.Err, domain.ErrTimeout)
	assert.False(t, res.Complete)
	assert.Len(t, res.Items, 1)
}

func TestLoad_PanicBecomesError(t *testing.T) {
	c := funcConnector{id: "boom", load: func(ctx context.Context, s app.Session) {
		panic("bad index")
	}}
	r, _ := newTestRunner(t, c)

	res := r.Load(context.Background(), feedFor("boom"))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "bad index")
}

func TestLoad_UnknownConnector(t *testing.T) {
	r, _ := newTestRunner(t, funcConnector{id: "known"})
	res := r.Load(context.Background(), feedFor("missing"))
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
}

func TestSession_ExposesHostAndFeed(t *testing.T) {
	c := funcConnector{id: "host", load: func(ctx context.Context, s app.Session) {
		body, err := s.SendRequest(ctx, app.Request{URL: s.Site()})
		if err != nil {
			s.ProcessError(err)
			return
		}
		doc, err := s.XMLParse(body)
		if err != nil {
			s.ProcessError(err)
			return
		}
		v := "seen"
		if err := s.SetItem("state", &v); err != nil {
			s.ProcessError(err)
			return
		}
		it := domain.NewItem(s.Site()+"/"+s.Variable("includeReplies"), day)
		if _, ok := doc["rss"]; ok {
			it.Title = "rss"
		}
		s.ProcessResults([]domain.Item{it}, true)
	}}
	r, store := newTestRunner(t, c)

	res := r.Load(context.Background(), feedFor("host"))
	require.NoError(t, res.Err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "https://example.com/false", res.Items[0].URI)
	assert.Equal(t, "rss", res.Items[0].Title)

	got, ok, err := store.Scope("f-host").GetItem("state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "seen", got)
}

func TestVerify(t *testing.T) {
	c := funcConnector{id: "verify", verify: func(ctx context.Context, s app.Session) {
		s.ProcessResults([]domain.Item{domain.NewItem("ignored", day)}, true)
		v := domain.NewVerification("Example")
		v.BaseURL = s.Site()
		s.ProcessVerification(v)
	}}
	r, _ := newTestRunner(t, c)

	v, err := r.Verify(context.Background(), feedFor("verify"))
	require.NoError(t, err)
	assert.Equal(t, "Example", v.DisplayName)
	assert.Equal(t, "https://example.com", v.BaseURL)
}

func TestVerify_Error(t *testing.T) {
	c := funcConnector{id: "verify", verify: func(ctx context.Context, s app.Session) {
		s.ProcessError(nil)
	}}
	r, _ := newTestRunner(t, c)

	_, err := r.Verify(context.Background(), feedFor("verify"))
	assert.ErrorIs(t, err, errUnknownConnectorError)
}

func TestLoadAll(t *testing.T) {
	c := funcConnector{id: "multi", load: func(ctx context.Context, s app.Session) {
		if s.Site() == "https://broken.example" {
			s.ProcessError(domain.ErrNotFound)
			return
		}
		s.ProcessResults([]domain.Item{domain.NewItem(s.Site()+"/1", day)}, true)
	}}
	r, _ := newTestRunner(t, c, WithConcurrency(2))

	feeds := []domain.Feed{
		{Name: "a", Connector: "multi", Site: "https://a.example"},
		{Name: "b", Connector: "multi", Site: "https://broken.example"},
		{Name: "c", Connector: "multi", Site: "https://c.example"},
	}
	results, err := r.LoadAll(context.Background(), feeds)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Feed.Name)
	assert.Len(t, results[0].Items, 1)
	assert.ErrorIs(t, results[1].Err, domain.ErrNotFound)
	assert.Len(t, results[2].Items, 1)
}

func TestTimelineRefreshStoresItems(t *testing.T) {
	c := funcConnector{id: "tl", load: func(ctx context.Context, s app.Session) {
		older := domain.NewItem(s.Site()+"/old", day.AddDate(-5, 0, 0))
		s.ProcessResults([]domain.Item{domain.NewItem(s.Site()+"/1", time.Now()), older}, true)
	}}
	r, _ := newTestRunner(t, c)
	ic, err := cache.Open(filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ic.Close() })

	feeds := []domain.Feed{{Name: "a", Connector: "tl", Site: "https://a.example"}}
	tl := NewTimeline(r, ic, feeds, 365*24*time.Hour, nil)

	statuses, err := tl.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 2, statuses[0].Items)
	assert.True(t, statuses[0].Complete)

	entries, err := tl.Entries(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://a.example/1", entries[0].Item.URI)
	assert.Equal(t, feeds, tl.Feeds())
}
