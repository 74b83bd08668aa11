// Package registry implements the endpoint name cache: {service name ->
// endpoint id}, populated lazily by one TX_RX call to the host's registry
// endpoint.
package registry

import "sync"

// Registry is a thread-safe {name -> endpoint id} cache.
type Registry struct {
	mu      sync.Mutex
	entries map[string]uint8
	fetched bool
}

// New returns an empty, unfetched registry.
func New() *Registry {
	return &Registry{entries: make(map[string]uint8)}
}

// Fetched reports whether the registry has already been populated from the
// host (successfully or partially, per a truncated response).
func (r *Registry) Fetched() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetched
}

// MarkFetched records that the one-time registry fetch has run, even if
// the response was truncated and only partially populated the map.
func (r *Registry) MarkFetched() {
	r.mu.Lock()
	r.fetched = true
	r.mu.Unlock()
}

// Set stores one {name -> id} entry, as decoded from a registry record.
func (r *Registry) Set(name string, id uint8) {
	r.mu.Lock()
	r.entries[name] = id
	r.mu.Unlock()
}

// Lookup returns the endpoint id for name, or (0, false) if absent.
func (r *Registry) Lookup(name string) (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.entries[name]
	return id, ok
}
