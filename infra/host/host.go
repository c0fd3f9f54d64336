// Package host runs connectors: it gives each one a per-feed Host, collects
// what the connector reports and turns it into results.
package host

import (
	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/infra/htmlmeta"
	"github.com/CrestNiraj12/tapestry/infra/xmlparse"
)

// feedHost is the Host a connector sees while working on one feed: the
// feed's authenticated requester and storage namespace, shared icon
// lookup, and the stateless parsers.
type feedHost struct {
	app.Requester
	app.IconLookup
	app.Store
}

var _ app.Host = feedHost{}

func (feedHost) XMLParse(text string) (map[string]any, error) {
	return xmlparse.Parse(text)
}

func (feedHost) PlistParse(text string) (any, error) {
	return xmlparse.ParsePlist(text)
}

func (feedHost) ExtractProperties(text string) map[string]string {
	return htmlmeta.ExtractProperties(text)
}
