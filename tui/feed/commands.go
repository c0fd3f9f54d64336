package feed

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/tapestry/app"
)

func (m Model) fetchEntries(reqSeq int) tea.Cmd {
	timeline := m.timeline
	filter := m.filter
	return func() tea.Msg {
		entries, err := timeline.Entries(context.Background(), filter, defaultLimit)
		if err != nil {
			return EntriesErrorMsg{Err: err, ReqSeq: reqSeq}
		}
		return EntriesLoadedMsg{Entries: entries, ReqSeq: reqSeq}
	}
}

func (m Model) refresh() tea.Cmd {
	timeline := m.timeline
	return func() tea.Msg {
		statuses, err := timeline.Refresh(context.Background())
		return RefreshedMsg{Statuses: statuses, Err: err}
	}
}

func (m Model) emitPrefsChanged() tea.Cmd {
	msg := PrefsChangedMsg{FeedFilter: m.filter, ShowCW: m.showCW}
	return func() tea.Msg { return msg }
}

func summarizeRefresh(statuses []app.FeedStatus) string {
	if len(statuses) == 0 {
		return "No feeds configured."
	}
	items := 0
	var failed []string
	for _, st := range statuses {
		items += st.Items
		if st.Err != nil {
			failed = append(failed, st.Feed)
		}
	}
	out := fmt.Sprintf("Refreshed %d feeds, %d items.", len(statuses), items)
	if len(failed) > 0 {
		out += fmt.Sprintf(" Failed: %s.", strings.Join(failed, ", "))
	}
	return out
}

func openURL(rawURL string) tea.Cmd {
	return func() tea.Msg {
		if !isSafeExternalURL(rawURL) {
			return nil
		}
		_ = browserCommand(rawURL).Start()
		return nil
	}
}

func browserCommand(rawURL string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		return exec.Command("xdg-open", rawURL)
	}
}

func isSafeExternalURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
