package mastodon

import (
	"net/url"
	"strings"
	"time"

	"github.com/CrestNiraj12/tapestry/domain"
)

// mastodonStatus is the subset of Mastodon's Status entity we care about.
type mastodonStatus struct {
	ID                 string                    `json:"id"`
	URI                string                    `json:"uri"`
	URL                string                    `json:"url"`
	CreatedAt          string                    `json:"created_at"`
	Content            string                    `json:"content"` // HTML
	SpoilerText        string                    `json:"spoiler_text"`
	Sensitive          bool                      `json:"sensitive"`
	InReplyToID        *string                   `json:"in_reply_to_id"`
	InReplyToAccountID *string                   `json:"in_reply_to_account_id"`
	Account            mastodonAccount           `json:"account"`
	Reblog             *mastodonStatus           `json:"reblog"`
	MediaAttachments   []mastodonMediaAttachment `json:"media_attachments"`
	Mentions           []mastodonMention         `json:"mentions"`
	Emojis             []mastodonEmoji           `json:"emojis"`
	Card               *mastodonCard             `json:"card"`
}

type mastodonAccount struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Acct        string          `json:"acct"`
	DisplayName string          `json:"display_name"`
	URL         string          `json:"url"`
	Avatar      string          `json:"avatar"`
	Emojis      []mastodonEmoji `json:"emojis"`
}

type mastodonMention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
	URL      string `json:"url"`
}

type mastodonEmoji struct {
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	StaticURL string `json:"static_url"`
}

type mastodonMediaAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // image, gifv, video, audio, unknown
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	RemoteURL   string `json:"remote_url"`
	Description string `json:"description"`
	Blurhash    string `json:"blurhash"`
	Meta        struct {
		Original struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"original"`
		Focus *struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"focus"`
	} `json:"meta"`
}

type mastodonCard struct {
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	AuthorName   string  `json:"author_name"`
	AuthorURL    string  `json:"author_url"`
	ProviderName string  `json:"provider_name"`
	Image        string  `json:"image"`
	Blurhash     string  `json:"blurhash"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
}

// mapper turns statuses into items for one instance.
type mapper struct {
	host           string // instance host, appended to local accts
	includeReplies bool
}

func newMapper(site string, includeReplies bool) mapper {
	host := ""
	if u, err := url.Parse(site); err == nil {
		host = u.Host
	}
	return mapper{host: host, includeReplies: includeReplies}
}

func (m mapper) mapStatuses(statuses []mastodonStatus) []domain.Item {
	items := make([]domain.Item, 0, len(statuses))
	for _, st := range statuses {
		it, ok := m.mapStatus(st)
		if !ok {
			continue
		}
		items = append(items, it)
	}
	return items
}

func (m mapper) mapStatus(st mastodonStatus) (domain.Item, bool) {
	createdAt, err := time.Parse(time.RFC3339, st.CreatedAt)
	if err != nil {
		return domain.Item{}, false
	}

	content := st
	var annotations []domain.Annotation
	if st.Reblog != nil {
		content = *st.Reblog
		booster := m.identity(st.Account)
		annotations = append(annotations, domain.Annotation{
			Text: "Boosted by " + booster.Name,
			Icon: booster.Avatar,
			URI:  booster.URI,
		})
	}

	if content.InReplyToID != nil {
		if !m.includeReplies && !isSelfReply(content) {
			return domain.Item{}, false
		}
		annotations = append(annotations, m.replyAnnotation(content))
	}

	// A boost keeps its own URI so it never collapses into the boosted post.
	uri := st.URL
	if uri == "" {
		uri = st.URI
	}
	author := m.identity(content.Account)

	it := domain.NewItem(uri, createdAt)
	it.Body = content.Content
	it.ContentWarning = strings.TrimSpace(content.SpoilerText)
	it.Author = &author
	it.Annotations = annotations
	it.Attachments = mapMediaAttachments(content.MediaAttachments)
	if card := mapCard(content.Card); card != nil {
		it.Attachments = append(it.Attachments, *card)
	}
	it.Shortcodes = shortcodes(content.Emojis, content.Account.Emojis)
	return it, true
}

func isSelfReply(st mastodonStatus) bool {
	return st.InReplyToAccountID != nil && *st.InReplyToAccountID == st.Account.ID
}

func (m mapper) replyAnnotation(st mastodonStatus) domain.Annotation {
	if isSelfReply(st) {
		return domain.NewAnnotation("Continued thread")
	}
	if st.InReplyToAccountID != nil {
		for _, mention := range st.Mentions {
			if mention.ID == *st.InReplyToAccountID {
				return domain.Annotation{Text: "Replying to " + m.handle(mention.Acct), URI: mention.URL}
			}
		}
	}
	return domain.NewAnnotation("Replying")
}

func (m mapper) identity(a mastodonAccount) domain.Identity {
	name := strings.TrimSpace(a.DisplayName)
	if name == "" {
		name = a.Username
	}
	if name == "" {
		name = a.Acct
	}
	return domain.Identity{
		Name:     name,
		Username: m.handle(a.Acct),
		URI:      a.URL,
		Avatar:   a.Avatar,
	}
}

// handle qualifies local accts with the instance host.
func (m mapper) handle(acct string) string {
	if acct == "" {
		return ""
	}
	if !strings.Contains(acct, "@") && m.host != "" {
		acct += "@" + m.host
	}
	return "@" + acct
}

func mapMediaAttachments(in []mastodonMediaAttachment) []domain.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(in))
	for _, a := range in {
		target := a.URL
		if target == "" {
			target = a.RemoteURL
		}
		if target == "" {
			target = a.PreviewURL
		}
		if target == "" {
			continue
		}
		media := domain.NewMediaAttachment(target)
		if a.PreviewURL != target {
			media.Thumbnail = a.PreviewURL
		}
		media.MimeType = mediaMimeType(a.Type)
		media.Blurhash = a.Blurhash
		media.Text = strings.TrimSpace(a.Description)
		if w, h := a.Meta.Original.Width, a.Meta.Original.Height; w > 0 && h > 0 {
			media.AspectSize = &domain.AspectSize{Width: w, Height: h}
		}
		if f := a.Meta.Focus; f != nil {
			media.FocalPoint = &domain.FocalPoint{X: f.X, Y: f.Y}
		}
		out = append(out, media)
	}
	return out
}

func mediaMimeType(kind string) string {
	switch kind {
	case "image":
		return "image"
	case "gifv", "video":
		return "video"
	case "audio":
		return "audio"
	}
	return ""
}

func mapCard(c *mastodonCard) *domain.LinkAttachment {
	if c == nil || c.URL == "" {
		return nil
	}
	link := domain.NewLinkAttachment(c.URL)
	link.Type = c.Type
	link.Title = strings.TrimSpace(c.Title)
	link.Subtitle = strings.TrimSpace(c.Description)
	link.SiteName = c.ProviderName
	link.AuthorName = c.AuthorName
	link.AuthorProfile = c.AuthorURL
	link.Image = c.Image
	link.Blurhash = c.Blurhash
	if c.Width > 0 && c.Height > 0 {
		link.AspectSize = &domain.AspectSize{Width: c.Width, Height: c.Height}
	}
	return &link
}

func shortcodes(lists ...[]mastodonEmoji) map[string]string {
	var out map[string]string
	for _, list := range lists {
		for _, e := range list {
			src := e.StaticURL
			if src == "" {
				src = e.URL
			}
			if e.Shortcode == "" || src == "" {
				continue
			}
			if out == nil {
				out = make(map[string]string)
			}
			if _, ok := out[e.Shortcode]; !ok {
				out[e.Shortcode] = src
			}
		}
	}
	return out
}
