package feed

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EntriesLoadedMsg:
		if msg.ReqSeq != m.reqSeq {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.entries = msg.Entries
		if m.cursor >= len(m.entries) {
			m.cursor = max(len(m.entries)-1, 0)
		}
		if m.showDetail && len(m.entries) == 0 {
			m.showDetail = false
		}
		m.ensureCursorVisible()
		return m, nil

	case EntriesErrorMsg:
		if msg.ReqSeq != m.reqSeq {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err
		return m, nil

	case RefreshedMsg:
		m.refreshing = false
		if msg.Err != nil {
			m.status = "Refresh failed: " + msg.Err.Error()
			return m, nil
		}
		m.status = summarizeRefresh(msg.Statuses)
		m.reqSeq++
		return m, m.fetchEntries(m.reqSeq)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showHints {
		switch {
		case key.Matches(msg, m.keys.ToggleHints), key.Matches(msg, m.keys.Back),
			key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Enter):
			m.showHints = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.ToggleHints):
		m.showHints = true

	case key.Matches(msg, m.keys.Refresh):
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.status = ""
		return m, tea.Batch(m.refresh(), m.spinner.Tick)

	case key.Matches(msg, m.keys.Up):
		if m.showDetail {
			if m.detailScroll > 0 {
				m.detailScroll--
			}
			break
		}
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Down):
		if m.showDetail {
			m.detailScroll++
			break
		}
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Top):
		if m.showDetail {
			m.detailScroll = 0
			break
		}
		m.cursor = 0
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Bottom):
		if m.showDetail {
			break
		}
		m.cursor = max(len(m.entries)-1, 0)
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Enter):
		if _, ok := m.SelectedEntry(); ok {
			m.showDetail = true
			m.detailScroll = 0
		}

	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
		// The root quits when q arrives outside the detail view.
		m.showDetail = false
		m.detailScroll = 0

	case key.Matches(msg, m.keys.Open):
		if e, ok := m.SelectedEntry(); ok {
			return m, m.openFunc(e.Item.URI)
		}

	case key.Matches(msg, m.keys.ToggleCW):
		if e, ok := m.SelectedEntry(); ok && e.Item.ContentWarning != "" {
			k := entryKey(e)
			if m.toggled[k] {
				delete(m.toggled, k)
			} else {
				m.toggled[k] = true
			}
		}

	case key.Matches(msg, m.keys.ToggleCWAll):
		m.showCW = !m.showCW
		clear(m.toggled)
		return m, m.emitPrefsChanged()

	case key.Matches(msg, m.keys.Filter):
		if m.showDetail {
			break
		}
		m.filter = m.nextFilter()
		m.cursor = 0
		m.startIndex = 0
		m.loading = true
		m.reqSeq++
		return m, tea.Batch(m.fetchEntries(m.reqSeq), m.emitPrefsChanged())
	}

	return m, nil
}

// nextFilter cycles through every feed, then back to all feeds.
func (m Model) nextFilter() string {
	if len(m.feeds) == 0 {
		return ""
	}
	if m.filter == "" {
		return m.feeds[0]
	}
	for i, name := range m.feeds {
		if name == m.filter && i+1 < len(m.feeds) {
			return m.feeds[i+1]
		}
	}
	return ""
}

func (m Model) visibleCount() int {
	// Reserved height: header (~5), tabs (~2), status and hints (~4).
	available := max(m.height-11, 0)
	// Each card is about 7 lines including its border.
	return max(available/7, 1)
}

func (m *Model) ensureCursorVisible() {
	if m.cursor < m.startIndex {
		m.startIndex = m.cursor
	}
	if n := m.visibleCount(); m.cursor >= m.startIndex+n {
		m.startIndex = m.cursor - n + 1
	}
	if m.startIndex < 0 {
		m.startIndex = 0
	}
}
