package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Item represents a single timeline entry produced by a connector.
type Item struct {
	URI            string            `json:"uri"`
	Date           time.Time         `json:"date"`
	Title          string            `json:"title,omitempty"`
	Body           string            `json:"body,omitempty"` // HTML
	ContentWarning string            `json:"contentWarning,omitempty"`
	Author         *Identity         `json:"author,omitempty"`
	Annotations    []Annotation      `json:"annotations,omitempty"`
	Attachments    []Attachment      `json:"-"`
	Shortcodes     map[string]string `json:"shortcodes,omitempty"` // name -> image URL
}

// NewItem creates an Item with its required unique URI and creation date.
func NewItem(uri string, date time.Time) Item {
	return Item{URI: uri, Date: date}
}

// Validate checks required fields of the item and everything it carries.
func (it Item) Validate() error {
	if it.URI == "" {
		return ErrMissingURI
	}
	if it.Date.IsZero() {
		return fmt.Errorf("item %q: %w", it.URI, ErrMissingDate)
	}
	if it.Author != nil {
		if err := it.Author.Validate(); err != nil {
			return fmt.Errorf("item %q: author: %w", it.URI, err)
		}
	}
	for i, a := range it.Annotations {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("item %q: annotation %d: %w", it.URI, i, err)
		}
	}
	for i, a := range it.Attachments {
		if a == nil {
			return fmt.Errorf("item %q: attachment %d: %w", it.URI, i, ErrMissingURL)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("item %q: attachment %d: %w", it.URI, i, err)
		}
	}
	return nil
}

// Clone returns a copy that shares no slices or maps with it.
func (it Item) Clone() Item {
	out := it
	if it.Author != nil {
		a := *it.Author
		out.Author = &a
	}
	if it.Annotations != nil {
		out.Annotations = append([]Annotation(nil), it.Annotations...)
	}
	if it.Attachments != nil {
		out.Attachments = append([]Attachment(nil), it.Attachments...)
	}
	if it.Shortcodes != nil {
		out.Shortcodes = maps.Clone(it.Shortcodes)
	}
	return out
}

type itemAlias Item

type itemWire struct {
	itemAlias
	Attachments []json.RawMessage `json:"attachments,omitempty"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	w := itemWire{itemAlias: itemAlias(it)}
	for _, a := range it.Attachments {
		raw, err := marshalAttachment(a)
		if err != nil {
			return nil, err
		}
		w.Attachments = append(w.Attachments, raw)
	}
	return json.Marshal(w)
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*it = Item(w.itemAlias)
	it.Attachments = nil
	for i, raw := range w.Attachments {
		a, err := unmarshalAttachment(raw)
		if err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
		it.Attachments = append(it.Attachments, a)
	}
	return nil
}
