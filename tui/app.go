package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/infra/config"
	"github.com/CrestNiraj12/tapestry/tui/common"
	"github.com/CrestNiraj12/tapestry/tui/feed"
)

// Deps holds all dependencies the TUI needs. Plain struct, not a DI container.
type Deps struct {
	Timeline  app.TimelineService
	StatePath string // where viewer preferences are saved; empty disables saving
	State     config.UIState
}

// App is the root Bubble Tea model.
type App struct {
	deps   Deps
	feed   feed.Model
	keys   common.KeyMap
	status string // Transient status message (e.g. a failed save)
}

type prefsSavedMsg struct {
	Err error
}

// NewApp creates the root model with all dependencies wired.
func NewApp(deps Deps) App {
	return App{
		deps: deps,
		feed: feed.New(deps.Timeline, deps.State.FeedFilter, deps.State.ShowCW),
		keys: common.DefaultKeyMap(),
	}
}

// Init delegates to the feed view.
func (a App) Init() tea.Cmd {
	return a.feed.Init()
}

// Update handles global messages and routes the rest to the feed view.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, a.keys.ForceQuit) {
			return a, tea.Quit
		}
		if key.Matches(msg, a.keys.Quit) && !a.feed.IsInDetailView() && !a.feed.IsShowingHints() {
			return a, tea.Quit
		}
		a.status = ""

	case feed.PrefsChangedMsg:
		a.deps.State = config.UIState{FeedFilter: msg.FeedFilter, ShowCW: msg.ShowCW}
		if a.deps.StatePath == "" {
			return a, nil
		}
		path, state := a.deps.StatePath, a.deps.State
		return a, func() tea.Msg {
			return prefsSavedMsg{Err: config.SaveUIState(path, state)}
		}

	case prefsSavedMsg:
		if msg.Err != nil {
			a.status = "Could not save preferences: " + msg.Err.Error()
		}
		return a, nil
	}

	updated, cmd := a.feed.Update(msg)
	a.feed = updated
	return a, cmd
}

// View renders the feed view.
func (a App) View() string {
	s := a.feed.View()

	// Append transient status if present.
	if a.status != "" {
		s += "\n" + common.ErrorStyle.Render(a.status)
	}
	return s
}

// State returns the preferences as last changed in this session.
func (a App) State() config.UIState {
	return a.deps.State
}
