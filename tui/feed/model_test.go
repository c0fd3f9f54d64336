package feed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
)

type stubTimeline struct {
	feeds    []domain.Feed
	entries  []domain.Entry
	statuses []app.FeedStatus
	err      error
	filters  []string
}

func (s *stubTimeline) Feeds() []domain.Feed { return s.feeds }

func (s *stubTimeline) Entries(_ context.Context, feed string, limit int) ([]domain.Entry, error) {
	s.filters = append(s.filters, feed)
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Entry
	for _, e := range s.entries {
		if feed == "" || e.Feed == feed {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubTimeline) Refresh(context.Context) ([]app.FeedStatus, error) {
	return s.statuses, nil
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func makeEntry(feed, uri string, age time.Duration) domain.Entry {
	it := domain.NewItem(uri, testNow.Add(-age))
	it.Body = "<p>hello from " + feed + "</p>"
	author := domain.NewIdentity("Author " + uri)
	author.Username = "@user@example.com"
	it.Author = &author
	return domain.Entry{Feed: feed, Item: it}
}

func newTestModel(tl *stubTimeline) Model {
	m := New(tl, "", false)
	m.now = func() time.Time { return testNow }
	m.refreshing = false
	return m
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(m.fetchEntries(m.reqSeq)())
	return updated
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func twoFeeds() *stubTimeline {
	return &stubTimeline{
		feeds: []domain.Feed{{Name: "news", Connector: "rss"}, {Name: "social", Connector: "mastodon"}},
		entries: []domain.Entry{
			makeEntry("news", "https://news.example/1", time.Minute),
			makeEntry("social", "https://social.example/2", time.Hour),
			makeEntry("news", "https://news.example/3", 2*time.Hour),
		},
	}
}

func TestNew_UnknownFilterFallsBackToAll(t *testing.T) {
	m := New(twoFeeds(), "missing", false)
	if m.Filter() != "" {
		t.Fatalf("expected unknown filter to reset, got %q", m.Filter())
	}
	m = New(twoFeeds(), "social", false)
	if m.Filter() != "social" {
		t.Fatalf("expected known filter kept, got %q", m.Filter())
	}
}

func TestEntriesLoaded_PopulatesAndClampsCursor(t *testing.T) {
	tl := twoFeeds()
	m := newTestModel(tl)
	m.cursor = 10
	m = loaded(t, m)
	if m.Loading() {
		t.Fatalf("expected loading cleared")
	}
	if len(m.Entries()) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m.Entries()))
	}
	if m.Cursor() != 2 {
		t.Fatalf("expected cursor clamped to last entry, got %d", m.Cursor())
	}
}

func TestEntriesLoaded_StaleRequestIgnored(t *testing.T) {
	m := newTestModel(twoFeeds())
	m.reqSeq = 2
	updated, _ := m.Update(EntriesLoadedMsg{Entries: []domain.Entry{makeEntry("news", "x", 0)}, ReqSeq: 1})
	if len(updated.Entries()) != 0 {
		t.Fatalf("expected stale entries ignored")
	}
	updated, _ = updated.Update(EntriesErrorMsg{Err: errors.New("boom"), ReqSeq: 1})
	if updated.Err() != nil {
		t.Fatalf("expected stale error ignored")
	}
}

func TestFilter_CyclesFeedsAndEmitsPrefs(t *testing.T) {
	tl := twoFeeds()
	m := loaded(t, newTestModel(tl))

	want := []string{"news", "social", ""}
	for _, w := range want {
		var cmd tea.Cmd
		m, cmd = m.Update(keyRune('f'))
		if m.Filter() != w {
			t.Fatalf("expected filter %q, got %q", w, m.Filter())
		}
		if cmd == nil {
			t.Fatalf("expected fetch and prefs command")
		}
		if !m.Loading() {
			t.Fatalf("expected filter change to set loading")
		}
	}
	if m.emitPrefsChanged()().(PrefsChangedMsg).FeedFilter != "" {
		t.Fatalf("expected prefs to carry current filter")
	}
}

func TestFilter_FetchUsesSelectedFeed(t *testing.T) {
	tl := twoFeeds()
	m := loaded(t, newTestModel(tl))
	m, _ = m.Update(keyRune('f'))
	m, _ = m.Update(m.fetchEntries(m.reqSeq)())
	if got := tl.filters[len(tl.filters)-1]; got != "news" {
		t.Fatalf("expected entries requested for news, got %q", got)
	}
	for _, e := range m.Entries() {
		if e.Feed != "news" {
			t.Fatalf("unexpected entry from %q", e.Feed)
		}
	}
}

func TestRefresh_SummarizesAndReloads(t *testing.T) {
	tl := twoFeeds()
	m := loaded(t, newTestModel(tl))

	updated, cmd := m.Update(keyRune('r'))
	if !updated.Refreshing() || cmd == nil {
		t.Fatalf("expected refresh to start")
	}
	_, again := updated.Update(keyRune('r'))
	if again != nil {
		t.Fatalf("expected second refresh ignored while running")
	}

	before := updated.reqSeq
	updated, cmd = updated.Update(RefreshedMsg{Statuses: []app.FeedStatus{
		{Feed: "news", Items: 2, Complete: true},
		{Feed: "social", Err: errors.New("timeout")},
	}})
	if updated.Refreshing() {
		t.Fatalf("expected refreshing cleared")
	}
	if updated.reqSeq != before+1 || cmd == nil {
		t.Fatalf("expected entries reload after refresh")
	}
	if !strings.Contains(updated.status, "2 items") || !strings.Contains(updated.status, "Failed: social") {
		t.Fatalf("unexpected status %q", updated.status)
	}
}

func TestRefresh_ErrorKeepsEntries(t *testing.T) {
	tl := twoFeeds()
	m := loaded(t, newTestModel(tl))
	m.refreshing = true
	updated, cmd := m.Update(RefreshedMsg{Err: errors.New("offline")})
	if cmd != nil {
		t.Fatalf("expected no reload after failed refresh")
	}
	if len(updated.Entries()) != 3 || !strings.Contains(updated.status, "offline") {
		t.Fatalf("expected entries kept and error reported, status %q", updated.status)
	}
}

func TestNavigation_DetailAndBack(t *testing.T) {
	tl := twoFeeds()
	m := loaded(t, newTestModel(tl))

	m, _ = m.Update(keyRune('j'))
	if m.Cursor() != 1 {
		t.Fatalf("expected cursor 1, got %d", m.Cursor())
	}
	m, _ = m.Update(keyRune('G'))
	if m.Cursor() != 2 {
		t.Fatalf("expected cursor at bottom, got %d", m.Cursor())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.IsInDetailView() {
		t.Fatalf("expected detail view")
	}
	m, _ = m.Update(keyRune('j'))
	if m.Cursor() != 2 || m.detailScroll != 1 {
		t.Fatalf("expected detail scroll without moving cursor")
	}
	m, _ = m.Update(keyRune('f'))
	if m.Filter() != "" {
		t.Fatalf("expected filter ignored in detail view")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.IsInDetailView() {
		t.Fatalf("expected esc to leave detail view")
	}
}

func TestContentWarning_ToggleSelectedAndDefault(t *testing.T) {
	tl := twoFeeds()
	tl.entries[0].Item.ContentWarning = "spoilers"
	tl.entries[0].Item.Body = "<p>the butler did it</p>"
	m := loaded(t, newTestModel(tl))
	m.width = 120
	m.height = 60

	if strings.Contains(m.View(), "the butler did it") {
		t.Fatalf("expected body hidden behind warning")
	}
	m, _ = m.Update(keyRune('w'))
	if !strings.Contains(m.View(), "the butler did it") {
		t.Fatalf("expected body revealed after toggle")
	}
	m, _ = m.Update(keyRune('w'))
	if strings.Contains(m.View(), "the butler did it") {
		t.Fatalf("expected body hidden again")
	}

	var cmd tea.Cmd
	m, cmd = m.Update(keyRune('W'))
	if cmd == nil {
		t.Fatalf("expected prefs command")
	}
	if prefs := cmd().(PrefsChangedMsg); !prefs.ShowCW {
		t.Fatalf("expected ShowCW persisted")
	}
	if !strings.Contains(m.View(), "the butler did it") {
		t.Fatalf("expected body revealed by default")
	}
}

func TestOpen_UsesSelectedURI(t *testing.T) {
	tl := twoFeeds()
	m := loaded(t, newTestModel(tl))
	var opened string
	m.openFunc = func(u string) tea.Cmd {
		opened = u
		return func() tea.Msg { return nil }
	}
	m, _ = m.Update(keyRune('j'))
	_, cmd := m.Update(keyRune('o'))
	if cmd == nil || opened != "https://social.example/2" {
		t.Fatalf("expected open for selected item, got %q", opened)
	}
}

func TestHints_CloseOnAnyDismissKey(t *testing.T) {
	m := newTestModel(twoFeeds())
	m, _ = m.Update(keyRune('?'))
	if !m.IsShowingHints() {
		t.Fatalf("expected hints dialog")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("expected key dialog view")
	}
	m, _ = m.Update(keyRune('q'))
	if m.IsShowingHints() {
		t.Fatalf("expected q to close hints")
	}
}

func TestView_RendersCardsAndTabs(t *testing.T) {
	tl := twoFeeds()
	tl.entries[1].Item.Annotations = []domain.Annotation{domain.NewAnnotation("Boosted by Carol")}
	tl.entries[1].Item.Attachments = []domain.Attachment{
		domain.NewMediaAttachment("https://social.example/a.png"),
		domain.NewLinkAttachment("https://blog.example/post"),
	}
	m := loaded(t, newTestModel(tl))
	m.width = 120
	m.height = 60

	out := m.View()
	for _, want := range []string{"Tapestry", "all", "news", "social", "hello from news", "Boosted by Carol", "1 media · 1 link", "1m", "1h"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
	if strings.Contains(out, "<p>") {
		t.Fatalf("expected HTML stripped from body")
	}
}

func TestView_DetailShowsAttachments(t *testing.T) {
	tl := twoFeeds()
	tl.entries[0].Item.Title = "Headline"
	tl.entries[0].Item.Attachments = []domain.Attachment{domain.LinkAttachment{URL: "https://blog.example/post", Title: "A post"}}
	m := loaded(t, newTestModel(tl))
	m.width = 120
	m.height = 60
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	out := m.View()
	for _, want := range []string{"Headline", "[link] https://blog.example/post", "A post", "https://news.example/1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected detail to contain %q", want)
		}
	}
}

func TestView_EmptyAndErrorStates(t *testing.T) {
	tl := &stubTimeline{}
	m := loaded(t, newTestModel(tl))
	if !strings.Contains(m.View(), "Nothing here yet") {
		t.Fatalf("expected empty state")
	}
	tl.err = errors.New("db locked")
	m = loaded(t, m)
	if !strings.Contains(m.View(), "db locked") {
		t.Fatalf("expected error state")
	}
}
