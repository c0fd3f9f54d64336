// Package jsonfeed reads JSON Feed 1.0 and 1.1 documents.
package jsonfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
)

const ID = "jsonfeed"

const versionPrefix = "https://jsonfeed.org/version/"

var ErrNotAFeed = errors.New("document is not a JSON Feed")

type jsonFeed struct {
	Version     string       `json:"version"`
	Title       string       `json:"title"`
	HomePageURL string       `json:"home_page_url"`
	FeedURL     string       `json:"feed_url"`
	Icon        string       `json:"icon"`
	Favicon     string       `json:"favicon"`
	Author      *jsonAuthor  `json:"author"` // 1.0
	Authors     []jsonAuthor `json:"authors"`
	Items       []jsonItem   `json:"items"`
}

type jsonAuthor struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Avatar string `json:"avatar"`
}

type jsonItem struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	ExternalURL   string           `json:"external_url"`
	Title         string           `json:"title"`
	ContentHTML   string           `json:"content_html"`
	ContentText   string           `json:"content_text"`
	Summary       string           `json:"summary"`
	Image         string           `json:"image"`
	BannerImage   string           `json:"banner_image"`
	DatePublished string           `json:"date_published"`
	DateModified  string           `json:"date_modified"`
	Author        *jsonAuthor      `json:"author"`
	Authors       []jsonAuthor     `json:"authors"`
	Attachments   []jsonAttachment `json:"attachments"`
}

type jsonAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Title    string `json:"title"`
}

// Connector implements app.Connector for JSON Feed. The feed's site is the
// feed document.
type Connector struct{}

var _ app.Connector = Connector{}

func New() Connector { return Connector{} }

func (Connector) ID() string { return ID }

func (Connector) DisplayName() string { return "JSON Feed" }

func (Connector) Verify(ctx context.Context, s app.Session) {
	f, err := fetch(ctx, s)
	if err != nil {
		s.ProcessError(err)
		return
	}
	name := strings.TrimSpace(f.Title)
	if name == "" {
		name = s.Site()
	}
	v := domain.NewVerification(name)
	v.BaseURL = f.HomePageURL
	if v.BaseURL == "" {
		v.BaseURL = s.Site()
	}
	v.Icon = f.Icon
	if v.Icon == "" {
		v.Icon = f.Favicon
	}
	s.ProcessVerification(v)
}

func (Connector) Load(ctx context.Context, s app.Session) {
	f, err := fetch(ctx, s)
	if err != nil {
		s.ProcessError(err)
		return
	}
	fallback := firstAuthor(f.Author, f.Authors)
	items := make([]domain.Item, 0, len(f.Items))
	for _, ji := range f.Items {
		items = append(items, mapItem(ji, fallback))
	}
	s.ProcessResults(items, true)
}

func fetch(ctx context.Context, s app.Session) (jsonFeed, error) {
	body, err := s.SendRequest(ctx, app.Request{URL: s.Site()})
	if err != nil {
		return jsonFeed{}, fmt.Errorf("fetching feed: %w", err)
	}
	var f jsonFeed
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		return jsonFeed{}, fmt.Errorf("parsing feed: %w", err)
	}
	if !strings.HasPrefix(f.Version, versionPrefix) {
		return jsonFeed{}, fmt.Errorf("version %q: %w", f.Version, ErrNotAFeed)
	}
	return f, nil
}

func mapItem(ji jsonItem, fallback *jsonAuthor) domain.Item {
	uri := ji.URL
	if uri == "" {
		uri = ji.ID
	}
	date, err := time.Parse(time.RFC3339, ji.DatePublished)
	if err != nil {
		date, _ = time.Parse(time.RFC3339, ji.DateModified)
	}

	it := domain.NewItem(uri, date)
	it.Title = ji.Title
	it.Body = ji.ContentHTML
	if it.Body == "" {
		it.Body = textToHTML(ji.ContentText)
	}
	if it.Body == "" {
		it.Body = textToHTML(ji.Summary)
	}

	if a := firstAuthor(ji.Author, ji.Authors); a != nil {
		it.Author = identity(a)
	} else if fallback != nil {
		it.Author = identity(fallback)
	}

	for _, att := range ji.Attachments {
		if att.URL == "" {
			continue
		}
		m := domain.NewMediaAttachment(att.URL)
		m.MimeType = att.MimeType
		m.Text = att.Title
		it.Attachments = append(it.Attachments, m)
	}
	if img := ji.Image; img != "" {
		it.Attachments = append(it.Attachments, domain.NewMediaAttachment(img))
	} else if img := ji.BannerImage; img != "" {
		it.Attachments = append(it.Attachments, domain.NewMediaAttachment(img))
	}
	if ji.ExternalURL != "" {
		it.Attachments = append(it.Attachments, domain.NewLinkAttachment(ji.ExternalURL))
	}
	return it
}

func firstAuthor(single *jsonAuthor, many []jsonAuthor) *jsonAuthor {
	if len(many) > 0 {
		return &many[0]
	}
	return single
}

func identity(a *jsonAuthor) *domain.Identity {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = a.URL
	}
	if name == "" {
		return nil
	}
	id := domain.NewIdentity(name)
	id.URI = a.URL
	id.Avatar = a.Avatar
	return &id
}

// textToHTML wraps plain text paragraphs so Body stays HTML.
func textToHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(s, "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
