// Package storage backs the per-feed key/value store connectors use through
// setItem, getItem and clearItems.
package storage

import (
	"errors"

	"github.com/CrestNiraj12/tapestry/app"
)

var ErrClosed = errors.New("store is closed")

// Store hands out key/value namespaces, one per feed.
type Store interface {
	// Scope returns the namespace of a feed. Namespaces never see each
	// other's keys.
	Scope(feed string) app.Store

	// Keys lists the keys stored for a feed.
	Keys(feed string) ([]string, error)

	Close() error
}
