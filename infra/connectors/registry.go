// Package connectors keeps the set of connectors feeds can refer to.
package connectors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/infra/connectors/jsonfeed"
	"github.com/CrestNiraj12/tapestry/infra/connectors/mastodon"
	"github.com/CrestNiraj12/tapestry/infra/connectors/rss"
)

// Registry maps connector ids to connectors. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]app.Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]app.Connector)}
}

// Default returns a registry holding the built-in connectors.
func Default() *Registry {
	r := NewRegistry()
	for _, c := range []app.Connector{rss.New(), jsonfeed.New(), mastodon.New()} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds c. Ids must be unique.
func (r *Registry) Register(c app.Connector) error {
	id := c.ID()
	if id == "" {
		return fmt.Errorf("connector has no id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connectors[id]; ok {
		return fmt.Errorf("connector %q already registered", id)
	}
	r.connectors[id] = c
	return nil
}

func (r *Registry) Lookup(id string) (app.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[id]
	return c, ok
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DisplayName returns the connector's display name, or its id.
func (r *Registry) DisplayName(id string) string {
	c, ok := r.Lookup(id)
	if !ok {
		return id
	}
	if d, ok := c.(app.Describer); ok {
		return d.DisplayName()
	}
	return id
}
