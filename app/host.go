package app

import "context"

// Request describes an HTTP request a connector asks the host to send.
type Request struct {
	URL        string
	Method     string            // defaults to GET
	Parameters string            // form-encoded body for POST and PUT, e.g. "foo=1&bar=x"
	Headers    map[string]string // extra headers
}

// Requester sends HTTP requests on behalf of a connector.
type Requester interface {
	// SendRequest returns the response body. For HEAD requests the result
	// is a JSON object of the response headers.
	SendRequest(ctx context.Context, req Request) (string, error)
}

// Parser converts documents a connector fetched into generic values.
type Parser interface {
	// XMLParse returns the document as nested maps. Attributes live in a
	// sibling "$attrs" map and repeated elements become slices.
	XMLParse(text string) (map[string]any, error)

	// PlistParse decodes an XML property list.
	PlistParse(text string) (any, error)

	// ExtractProperties returns Open Graph style metadata from an HTML page.
	ExtractProperties(text string) map[string]string
}

// IconLookup resolves the icon for a web page.
type IconLookup interface {
	// LookupIcon returns the icon URL, or "" when the page has none.
	LookupIcon(ctx context.Context, pageURL string) (string, error)
}

// Store is the flat key/value string storage a connector gets per feed.
type Store interface {
	// SetItem stores value under key; a nil value removes the key.
	SetItem(key string, value *string) error

	// GetItem returns the stored value and whether it exists.
	GetItem(key string) (string, bool, error)

	// ClearItems removes every key.
	ClearItems() error
}

// Host is everything the host application provides to connectors.
type Host interface {
	Requester
	Parser
	IconLookup
	Store
}
