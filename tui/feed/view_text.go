package feed

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/tui/common"
)

func truncateToTwoLines(text string, width int) string {
	if width < 12 {
		width = 12
	}
	// Render with width to handle both explicit newlines and wrapping.
	wrapped := lipgloss.NewStyle().Width(width).Render(text)
	lines := strings.Split(wrapped, "\n")
	if len(lines) <= 2 {
		return wrapped
	}
	return strings.Join(lines[:2], "\n") + "..."
}

func authorStyleFor(key string) lipgloss.Style {
	palette := []string{
		"#7DC4E4", "#8BD5CA", "#F5A97F", "#C6A0F6", "#EBA0AC",
		"#A6DA95", "#F9E2AF", "#89B4FA", "#F38BA8", "#94E2D5",
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(key))))
	idx := int(h.Sum32() % uint32(len(palette)))
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(palette[idx]))
}

// renderAuthor shows the display name followed by a dimmed handle.
func renderAuthor(author *domain.Identity) string {
	if author == nil {
		return ""
	}
	name := common.SanitizeForTerminal(author.Name)
	handle := common.SanitizeForTerminal(author.Username)
	key := handle
	if key == "" {
		key = name
	}
	out := authorStyleFor(key).Render(name)
	if handle == "" || handle == name {
		return out
	}
	local, domain := splitUsernameDomain(strings.TrimPrefix(handle, "@"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#8E8E8E")).Faint(true)
	out += " " + dim.Render("@"+local)
	if domain != "" {
		out += dim.Render("@" + domain)
	}
	return out
}

func splitUsernameDomain(username string) (local, domain string) {
	u := strings.TrimSpace(username)
	if u == "" {
		return "", ""
	}
	parts := strings.SplitN(u, "@", 2)
	local = strings.TrimSpace(parts[0])
	if local == "" {
		local = u
	}
	if len(parts) > 1 {
		domain = strings.TrimSpace(parts[1])
	}
	return local, domain
}

func clipLines(text string, maxLines int) string {
	if maxLines < 1 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	return strings.Join(lines[:maxLines], "\n")
}

func clampLinesToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		if ansi.StringWidth(ln) <= width {
			continue
		}
		lines[i] = ansi.Cut(ln, 0, width)
	}
	return strings.Join(lines, "\n")
}

// attachmentSummary counts media and links, e.g. "2 media · 1 link".
func attachmentSummary(atts []domain.Attachment) string {
	var media, links int
	for _, a := range atts {
		switch a.Kind() {
		case domain.KindMedia:
			media++
		case domain.KindLink:
			links++
		}
	}
	var parts []string
	if media > 0 {
		parts = append(parts, fmt.Sprintf("%d media", media))
	}
	switch {
	case links == 1:
		parts = append(parts, "1 link")
	case links > 1:
		parts = append(parts, fmt.Sprintf("%d links", links))
	}
	return strings.Join(parts, " · ")
}

func describeAttachment(a domain.Attachment) string {
	switch v := a.(type) {
	case domain.MediaAttachment:
		label := "media"
		if v.MimeType != "" {
			label = v.MimeType
		}
		line := fmt.Sprintf("[%s] %s", label, v.URL)
		if v.Text != "" {
			line += "\n    " + v.Text
		}
		return common.SanitizeForTerminal(line)
	case domain.LinkAttachment:
		line := "[link] " + v.URL
		if v.Title != "" {
			line += "\n    " + v.Title
		}
		if v.SiteName != "" {
			line += " (" + v.SiteName + ")"
		}
		return common.SanitizeForTerminal(line)
	}
	return ""
}
