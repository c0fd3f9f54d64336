// Package xmlparse turns XML documents and property lists into the generic
// nested values connectors work with.
package xmlparse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	// AttrsKey holds an element's attributes next to its children.
	AttrsKey = "$attrs"
	// TextKey holds the text of an element that also has attributes or children.
	TextKey = "$text"
)

var ErrEmptyDocument = errors.New("xml document has no root element")

type frame struct {
	name     string
	attrs    map[string]any
	children map[string]any
	text     strings.Builder
}

func (f *frame) add(name string, v any) {
	if f.children == nil {
		f.children = make(map[string]any)
	}
	switch cur := f.children[name].(type) {
	case nil:
		f.children[name] = v
	case []any:
		f.children[name] = append(cur, v)
	default:
		f.children[name] = []any{cur, v}
	}
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if f.attrs == nil && f.children == nil {
		return text
	}
	out := f.children
	if out == nil {
		out = make(map[string]any)
	}
	if f.attrs != nil {
		out[AttrsKey] = f.attrs
	}
	if text != "" {
		out[TextKey] = text
	}
	return out
}

// namespaces maps namespace URLs back to the prefixes the document used,
// so "media:content" stays "media:content" instead of the resolved URL.
type namespaces []map[string]string

func (ns namespaces) prefix(space string) (string, bool) {
	for i := len(ns) - 1; i >= 0; i-- {
		if p, ok := ns[i][space]; ok {
			return p, true
		}
	}
	return "", false
}

func (ns namespaces) qualify(n xml.Name) string {
	switch n.Space {
	case "":
		return n.Local
	case "xmlns":
		return "xmlns:" + n.Local
	case "xml":
		return "xml:" + n.Local
	}
	if p, ok := ns.prefix(n.Space); ok {
		if p == "" {
			return n.Local
		}
		return p + ":" + n.Local
	}
	// An undeclared prefix is left unresolved by the decoder.
	if !strings.Contains(n.Space, "/") {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

// Parse decodes text into a map keyed by the root element name. Elements
// with only text become strings; elements with attributes or children
// become maps where attributes sit under "$attrs" and repeated children
// become slices.
func Parse(text string) (map[string]any, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var (
		stack []*frame
		ns    namespaces
		root  map[string]any
	)

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			bindings := map[string]string{}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					bindings[a.Value] = a.Name.Local
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					bindings[a.Value] = ""
				}
			}
			ns = append(ns, bindings)

			f := &frame{name: ns.qualify(t.Name)}
			if len(t.Attr) > 0 {
				f.attrs = make(map[string]any, len(t.Attr))
				for _, a := range t.Attr {
					f.attrs[ns.qualify(a.Name)] = a.Value
				}
			}
			stack = append(stack, f)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ns = ns[:len(ns)-1]
			if len(stack) == 0 {
				if root == nil {
					root = map[string]any{f.name: f.value()}
				}
				continue
			}
			stack[len(stack)-1].add(f.name, f.value())

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	// Unclosed elements in a lenient parse still produce a tree.
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			if root == nil {
				root = map[string]any{f.name: f.value()}
			}
			break
		}
		stack[len(stack)-1].add(f.name, f.value())
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}
