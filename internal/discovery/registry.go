// Package discovery lists the stats API endpoints the analyzer knows about.
package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// ErrUnknownEndpoint is returned when a name is not in the registry
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Endpoint is a registry handle for one stats API endpoint
type Endpoint struct {
	Name string
	Path string
}

// Registry maps endpoint names to their handles
type Registry struct {
	endpoints map[string]Endpoint
	lower     map[string]string
}

// NewRegistry builds a registry from endpoint names; the request path is the lowercased name
func NewRegistry(names ...string) *Registry {
	r := &Registry{
		endpoints: make(map[string]Endpoint, len(names)),
		lower:     make(map[string]string, len(names)),
	}
	for _, name := range names {
		r.endpoints[name] = Endpoint{Name: name, Path: strings.ToLower(name)}
		r.lower[strings.ToLower(name)] = name
	}
	return r
}

// Default returns the registry of known stats endpoints
func Default() *Registry {
	return NewRegistry(knownEndpoints...)
}

// ListKnownEndpoints returns every registered endpoint keyed by name
func (r *Registry) ListKnownEndpoints() map[string]Endpoint {
	out := make(map[string]Endpoint, len(r.endpoints))
	for name, ep := range r.endpoints {
		out[name] = ep
	}
	return out
}

// Paths returns the request path of every registered endpoint keyed by name
func (r *Registry) Paths() map[string]string {
	out := make(map[string]string, len(r.endpoints))
	for name, ep := range r.endpoints {
		out[name] = ep.Path
	}
	return out
}

// Names returns the registered endpoint names in sorted order
func (r *Registry) Names() []string {
	return models.SortedKeys(r.endpoints)
}

// Len returns the number of registered endpoints
func (r *Registry) Len() int {
	return len(r.endpoints)
}

// Lookup finds an endpoint by exact name, then case-insensitively
func (r *Registry) Lookup(name string) (Endpoint, error) {
	if ep, ok := r.endpoints[name]; ok {
		return ep, nil
	}
	if canonical, ok := r.lower[strings.ToLower(name)]; ok {
		return r.endpoints[canonical], nil
	}
	return Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
}

// Select resolves a list of names, failing on the first unknown one.
// An empty list selects every registered endpoint.
func (r *Registry) Select(names []string) ([]Endpoint, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	out := make([]Endpoint, 0, len(names))
	for _, name := range names {
		ep, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}
