package xmlparse

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

var ErrInvalidPlist = errors.New("invalid property list")

// ParsePlist decodes an XML property list. Dictionaries become
// map[string]any, arrays []any, and scalars string, int64, float64, bool,
// time.Time or []byte.
func ParsePlist(text string) (any, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no value", ErrInvalidPlist)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing plist: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "plist" {
			continue
		}
		return plistValue(d, start)
	}
}

func plistValue(d *xml.Decoder, start xml.StartElement) (any, error) {
	switch start.Name.Local {
	case "dict":
		return plistDict(d)
	case "array":
		return plistArray(d)
	case "true", "false":
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return start.Name.Local == "true", nil
	}

	text, err := elementText(d)
	if err != nil {
		return nil, err
	}

	switch start.Name.Local {
	case "string":
		return text, nil
	case "integer":
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: integer %q", ErrInvalidPlist, text)
		}
		return n, nil
	case "real":
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: real %q", ErrInvalidPlist, text)
		}
		return f, nil
	case "date":
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrInvalidPlist, text)
		}
		return t, nil
	case "data":
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
				return -1
			}
			return r
		}, text)
		b, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrInvalidPlist, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: unknown element <%s>", ErrInvalidPlist, start.Name.Local)
}

func plistDict(d *xml.Decoder) (map[string]any, error) {
	out := make(map[string]any)
	var key *string
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing plist dict: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "key" {
				k, err := elementText(d)
				if err != nil {
					return nil, err
				}
				key = &k
				continue
			}
			if key == nil {
				return nil, fmt.Errorf("%w: dict value <%s> without key", ErrInvalidPlist, t.Name.Local)
			}
			v, err := plistValue(d, t)
			if err != nil {
				return nil, err
			}
			out[*key] = v
			key = nil
		case xml.EndElement:
			return out, nil
		}
	}
}

func plistArray(d *xml.Decoder) ([]any, error) {
	out := []any{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing plist array: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := plistValue(d, t)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case xml.EndElement:
			return out, nil
		}
	}
}

func elementText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return "", fmt.Errorf("parsing plist: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return b.String(), nil
		}
	}
}
