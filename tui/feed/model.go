package feed

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/tui/common"
)

const defaultLimit = 200

// --- Messages ---

// EntriesLoadedMsg is sent when cached entries have been read.
type EntriesLoadedMsg struct {
	Entries []domain.Entry
	ReqSeq  int
}

// EntriesErrorMsg is sent when reading cached entries fails.
type EntriesErrorMsg struct {
	Err    error
	ReqSeq int
}

// RefreshedMsg is sent when every feed has been loaded again.
type RefreshedMsg struct {
	Statuses []app.FeedStatus
	Err      error
}

// PrefsChangedMsg asks the root to persist viewer preferences.
type PrefsChangedMsg struct {
	FeedFilter string
	ShowCW     bool
}

// --- Model ---

// Model holds the state for the merged timeline view.
type Model struct {
	timeline app.TimelineService
	feeds    []string // names in file order
	filter   string   // "" shows every feed

	entries    []domain.Entry
	cursor     int
	startIndex int
	reqSeq     int

	loading    bool
	refreshing bool
	err        error
	status     string // last refresh summary

	showDetail   bool
	detailScroll int
	showHints    bool

	showCW   bool            // reveal content warnings by default
	toggled  map[string]bool // entries flipped away from showCW
	width    int
	height   int
	keys     common.KeyMap
	spinner  spinner.Model
	now      func() time.Time
	openFunc func(string) tea.Cmd
}

// New creates a feed model. An unknown filter falls back to every feed.
func New(timeline app.TimelineService, filter string, showCW bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600"))

	var names []string
	for _, f := range timeline.Feeds() {
		names = append(names, f.Name)
	}
	m := Model{
		timeline:   timeline,
		feeds:      names,
		showCW:     showCW,
		toggled:    make(map[string]bool),
		keys:       common.DefaultKeyMap(),
		spinner:    s,
		loading:    true,
		refreshing: true,
		now:        time.Now,
		openFunc:   openURL,
	}
	if m.hasFeed(filter) {
		m.filter = filter
	}
	return m
}

// Init shows the cached timeline and starts a refresh of every feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchEntries(m.reqSeq),
		m.refresh(),
		m.spinner.Tick,
	)
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m.update(msg)
}

// Entries returns the entries currently shown.
func (m Model) Entries() []domain.Entry {
	return m.entries
}

// Filter returns the active feed filter, "" for every feed.
func (m Model) Filter() string {
	return m.filter
}

// Loading returns whether entries are being read.
func (m Model) Loading() bool {
	return m.loading
}

// Refreshing returns whether feeds are being loaded.
func (m Model) Refreshing() bool {
	return m.refreshing
}

// Err returns the current error, if any.
func (m Model) Err() error {
	return m.err
}

// Cursor returns the current cursor position.
func (m Model) Cursor() int {
	return m.cursor
}

// IsInDetailView reports whether a single item is open.
func (m Model) IsInDetailView() bool {
	return m.showDetail
}

// IsShowingHints reports whether the key dialog is open.
func (m Model) IsShowingHints() bool {
	return m.showHints
}

// SelectedEntry returns the highlighted entry, if any.
func (m Model) SelectedEntry() (domain.Entry, bool) {
	if len(m.entries) == 0 || m.cursor < 0 || m.cursor >= len(m.entries) {
		return domain.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m Model) hasFeed(name string) bool {
	for _, n := range m.feeds {
		if n == name {
			return true
		}
	}
	return false
}

func entryKey(e domain.Entry) string {
	return e.Feed + "\x00" + e.Item.URI
}

func (m Model) isRevealed(e domain.Entry) bool {
	return m.showCW != m.toggled[entryKey(e)]
}
