package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/tui/common"
)

// View renders the feed as a string.
func (m Model) View() string {
	if m.showHints {
		return m.renderKeyDialog()
	}
	if m.showDetail {
		return m.renderDetailView()
	}

	var b strings.Builder
	title := common.AppTitleStyle.Padding(1, 0, 0, 1).Render("🧵 Tapestry")
	tagline := common.TaglineStyle.Render("<every feed, one terminal>")
	b.WriteString(title + tagline + "\n")
	b.WriteString(m.renderTabs() + "\n\n")

	switch {
	case m.loading && len(m.entries) == 0:
		b.WriteString(fmt.Sprintf("  %s Loading timeline...\n", m.spinner.View()))
	case m.err != nil:
		b.WriteString(common.ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		b.WriteString("\n\n  Press r to retry.\n")
	case len(m.entries) == 0:
		if m.refreshing {
			b.WriteString(fmt.Sprintf("  %s Fetching feeds...\n", m.spinner.View()))
		} else {
			b.WriteString("  Nothing here yet. Press r to refresh.\n")
		}
	default:
		end := min(m.startIndex+m.visibleCount(), len(m.entries))
		for i := m.startIndex; i < end; i++ {
			b.WriteString(m.renderCard(m.entries[i], i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n" + m.helpView())
	return b.String()
}

func (m Model) renderTabs() string {
	labels := append([]string{"all"}, m.feeds...)
	rendered := make([]string, 0, len(labels))
	for i, label := range labels {
		active := (i == 0 && m.filter == "") || (i > 0 && label == m.filter)
		if active {
			rendered = append(rendered, common.TabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, common.TabInactiveStyle.Render(label))
		}
	}
	return lipgloss.NewStyle().MarginLeft(2).PaddingTop(1).Render(strings.Join(rendered, " "))
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 70
	}
	return max(min(m.width-8, 100), 20)
}

func (m Model) renderCard(e domain.Entry, selected bool) string {
	it := e.Item
	width := m.contentWidth()
	var lines []string

	if len(it.Annotations) > 0 {
		ann := "↻ " + common.SanitizeForTerminal(it.Annotations[0].Text)
		lines = append(lines, common.AnnotationStyle.Render(clampLinesToWidth(ann, width)))
	}

	header := []string{}
	if a := renderAuthor(it.Author); a != "" {
		header = append(header, a)
	}
	header = append(header,
		common.FeedNameStyle.Render(e.Feed),
		common.TimestampStyle.Render(common.RelativeTime(it.Date, m.now())),
	)
	lines = append(lines, clampLinesToWidth(strings.Join(header, "  "), width))

	if it.Title != "" {
		lines = append(lines, common.TitleStyle.Render(clampLinesToWidth(common.SanitizeForTerminal(it.Title), width)))
	}

	indicator := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")).Render("┃ ")
	if it.ContentWarning != "" && !m.isRevealed(e) {
		cw := "⚠ " + common.SanitizeForTerminal(it.ContentWarning) + "  (w to reveal)"
		lines = append(lines, indicator+common.WarningStyle.Render(clampLinesToWidth(cw, width)))
	} else {
		if it.ContentWarning != "" {
			lines = append(lines, indicator+common.WarningStyle.Render("⚠ "+common.SanitizeForTerminal(it.ContentWarning)))
		}
		if body := common.StripHTML(it.Body); body != "" {
			for _, ln := range strings.Split(truncateToTwoLines(body, width), "\n") {
				lines = append(lines, indicator+common.ContentStyle.Render(ln))
			}
		}
	}

	if summary := attachmentSummary(it.Attachments); summary != "" {
		lines = append(lines, common.MetadataStyle.Render("📎 "+summary))
	}

	card := strings.Join(lines, "\n")
	if selected {
		return common.SelectedStyle.Render(card)
	}
	return common.UnselectedStyle.Render(card)
}

func (m Model) renderDetailView() string {
	e, ok := m.SelectedEntry()
	if !ok {
		return ""
	}
	it := e.Item
	width := m.contentWidth()
	wrap := lipgloss.NewStyle().Width(width)

	var lines []string
	for _, a := range it.Annotations {
		lines = append(lines, common.AnnotationStyle.Render("↻ "+common.SanitizeForTerminal(a.Text)))
	}
	if a := renderAuthor(it.Author); a != "" {
		lines = append(lines, a)
	}
	lines = append(lines,
		common.FeedNameStyle.Render(e.Feed)+"  "+
			common.TimestampStyle.Render(it.Date.Local().Format("Jan 02, 2006 15:04")),
		"",
	)
	if it.Title != "" {
		lines = append(lines, common.TitleStyle.Render(wrap.Render(common.SanitizeForTerminal(it.Title))), "")
	}
	if it.ContentWarning != "" {
		lines = append(lines, common.WarningStyle.Render(wrap.Render("⚠ "+common.SanitizeForTerminal(it.ContentWarning))))
	}
	if it.ContentWarning == "" || m.isRevealed(e) {
		if body := common.StripHTML(it.Body); body != "" {
			lines = append(lines, strings.Split(common.ContentStyle.Render(wrap.Render(body)), "\n")...)
		}
	} else {
		lines = append(lines, common.MetadataStyle.Render("Press w to reveal."))
	}
	if len(it.Attachments) > 0 {
		lines = append(lines, "")
		for _, a := range it.Attachments {
			lines = append(lines, strings.Split(common.MetadataStyle.Render(clampLinesToWidth(describeAttachment(a), width)), "\n")...)
		}
	}
	lines = append(lines, "", common.MetadataStyle.Render(clampLinesToWidth(common.SanitizeForTerminal(it.URI), width)))

	visible := len(lines)
	if m.height > 0 {
		visible = max(m.height-6, 3)
	}
	scroll := min(m.detailScroll, max(len(lines)-visible, 0))
	end := min(scroll+visible, len(lines))
	body := clipLines(strings.Join(lines[scroll:end], "\n"), visible)

	out := common.SelectedStyle.Margin(1, 1, 0, 1).Render(body)
	hints := []string{"j/k: scroll", "o: open", "w: warning", "esc/q: back", "?: all keys"}
	return out + "\n" + common.StatusBarStyle.Render("  "+strings.Join(hints, " • "))
}

func (m Model) statusLine() string {
	switch {
	case m.refreshing && len(m.entries) > 0:
		return fmt.Sprintf("\n  %s Refreshing feeds...", m.spinner.View())
	case m.status != "":
		return "\n" + common.StatusBarStyle.Padding(0, 0, 0, 2).Render(m.status)
	}
	return ""
}

func (m Model) helpView() string {
	var items []string
	if len(m.entries) > 0 {
		items = []string{
			"j/k: focus",
			"enter: detail",
			"o: open",
			"w: warning",
			"f: feed",
			"r: refresh",
			"q: quit",
			"?: all keys",
		}
	} else {
		items = []string{
			"f: feed",
			"r: refresh",
			"q: quit",
			"?: all keys",
		}
	}
	wrapWidth := max(m.width-2, 16)
	return common.StatusBarStyle.
		Width(wrapWidth).
		Render("  " + strings.Join(items, " • "))
}

func (m Model) renderKeyDialog() string {
	var lines []string
	for _, b := range m.keys.Help() {
		h := b.Help()
		lines = append(lines, fmt.Sprintf("%-16s%s", h.Key, h.Desc))
	}
	lines = append(lines, fmt.Sprintf("%-16s%s", "ctrl+c", "force quit"))

	body := "Keyboard Shortcuts\n\n" + strings.Join(lines, "\n") + "\n\nPress ?, esc, q, or enter to close."
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FF8700")).
		Padding(1, 2).
		Margin(1, 2).
		Render(body)
}
