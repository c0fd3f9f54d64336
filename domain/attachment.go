package domain

import (
	"encoding/json"
	"fmt"
)

// AttachmentKind discriminates attachments on the wire.
type AttachmentKind string

const (
	KindMedia AttachmentKind = "media"
	KindLink  AttachmentKind = "link"
)

// AspectSize is the width and height of a piece of media.
type AspectSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FocalPoint is the point of interest of an image, in the -1..1 range used
// by Mastodon.
type FocalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Attachment is either a MediaAttachment or a LinkAttachment.
type Attachment interface {
	Kind() AttachmentKind
	Validate() error
	attachment()
}

// MediaAttachment is an image, video or audio file attached to an Item.
type MediaAttachment struct {
	URL        string      `json:"url"`
	Thumbnail  string      `json:"thumbnail,omitempty"`
	MimeType   string      `json:"mimeType,omitempty"`
	Blurhash   string      `json:"blurhash,omitempty"`
	Text       string      `json:"text,omitempty"` // accessibility description
	AspectSize *AspectSize `json:"aspectSize,omitempty"`
	FocalPoint *FocalPoint `json:"focalPoint,omitempty"`
}

// NewMediaAttachment creates a MediaAttachment for url.
func NewMediaAttachment(url string) MediaAttachment {
	return MediaAttachment{URL: url}
}

func (MediaAttachment) Kind() AttachmentKind { return KindMedia }
func (MediaAttachment) attachment()          {}

func (m MediaAttachment) Validate() error {
	if m.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// LinkAttachment is a preview card for a linked page.
type LinkAttachment struct {
	URL           string      `json:"url"`
	Type          string      `json:"type,omitempty"` // usually og:type
	Title         string      `json:"title,omitempty"`
	Subtitle      string      `json:"subtitle,omitempty"`
	SiteName      string      `json:"siteName,omitempty"`
	AuthorName    string      `json:"authorName,omitempty"`
	AuthorProfile string      `json:"authorProfile,omitempty"`
	Image         string      `json:"image,omitempty"`
	Blurhash      string      `json:"blurhash,omitempty"`
	AspectSize    *AspectSize `json:"aspectSize,omitempty"`
}

// NewLinkAttachment creates a LinkAttachment for url.
func NewLinkAttachment(url string) LinkAttachment {
	return LinkAttachment{URL: url}
}

func (LinkAttachment) Kind() AttachmentKind { return KindLink }
func (LinkAttachment) attachment()          {}

func (l LinkAttachment) Validate() error {
	if l.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// AttachmentURL returns the target URL of either attachment kind.
func AttachmentURL(a Attachment) string {
	switch v := a.(type) {
	case MediaAttachment:
		return v.URL
	case LinkAttachment:
		return v.URL
	}
	return ""
}

func marshalAttachment(a Attachment) ([]byte, error) {
	switch v := a.(type) {
	case MediaAttachment:
		return json.Marshal(struct {
			Kind AttachmentKind `json:"kind"`
			MediaAttachment
		}{KindMedia, v})
	case LinkAttachment:
		return json.Marshal(struct {
			Kind AttachmentKind `json:"kind"`
			LinkAttachment
		}{KindLink, v})
	default:
		return nil, fmt.Errorf("unsupported attachment type %T", a)
	}
}

// attachmentProbe holds the fields used to tell the two kinds apart when a
// producer left out the discriminator.
type attachmentProbe struct {
	Kind       AttachmentKind  `json:"kind"`
	MimeType   string          `json:"mimeType"`
	Thumbnail  string          `json:"thumbnail"`
	Text       string          `json:"text"`
	FocalPoint json.RawMessage `json:"focalPoint"`
	Title      string          `json:"title"`
	Subtitle   string          `json:"subtitle"`
	SiteName   string          `json:"siteName"`
	Type       string          `json:"type"`
}

func (p attachmentProbe) kind() AttachmentKind {
	if p.Kind != "" {
		return p.Kind
	}
	if p.MimeType != "" || p.Thumbnail != "" || p.Text != "" || len(p.FocalPoint) > 0 {
		return KindMedia
	}
	if p.Title != "" || p.Subtitle != "" || p.SiteName != "" || p.Type != "" {
		return KindLink
	}
	return KindMedia
}

func unmarshalAttachment(data []byte) (Attachment, error) {
	var probe attachmentProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.kind() {
	case KindMedia:
		var m MediaAttachment
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindLink:
		var l LinkAttachment
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown attachment kind %q", probe.Kind)
	}
}
