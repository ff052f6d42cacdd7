package lsp

import (
	"fmt"
	"sync"
)

// Origin tags a result with the server that produced it. Positions inside a
// result are in Origin.Encoding until mapped into document offsets.
type Origin struct {
	Server   ServerID
	Encoding OffsetEncoding
}

// OriginOf returns the origin tag for a client.
func OriginOf(c Client) Origin {
	return Origin{Server: c.ID(), Encoding: c.OffsetEncoding()}
}

// Registry holds the connected servers by identity. Documents attach servers
// by ID and look them up here when applying results after the fact, since a
// server may be removed while a request is in flight.
type Registry struct {
	mu      sync.RWMutex
	servers map[ServerID]Client
	order   []ServerID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		servers: make(map[ServerID]Client),
	}
}

// Register adds a server. Registering the same ID twice is an error.
func (r *Registry) Register(c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[c.ID()]; exists {
		return fmt.Errorf("server %s (%s) already registered", c.Name(), c.ID())
	}
	r.servers[c.ID()] = c
	r.order = append(r.order, c.ID())
	return nil
}

// Unregister removes a server. Unknown IDs are ignored.
func (r *Registry) Unregister(id ServerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[id]; !exists {
		return
	}
	delete(r.servers, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the server with the given ID.
func (r *Registry) Get(id ServerID) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.servers[id]
	return c, ok
}

// Resolve returns the servers for the given IDs in the given order, skipping
// IDs that are no longer registered.
func (r *Registry) Resolve(ids []ServerID) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.servers[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// List returns all servers in registration order.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.servers[id])
	}
	return out
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// Select returns the distinct servers that advertise the capability, in
// attachment order. When the same identity appears more than once the first
// occurrence wins. An empty result means no attached server supports c.
func Select(servers []Client, c Capability) []Client {
	seen := make(map[ServerID]struct{}, len(servers))
	var out []Client
	for _, s := range servers {
		if s == nil || !s.Supports(c) {
			continue
		}
		if _, dup := seen[s.ID()]; dup {
			continue
		}
		seen[s.ID()] = struct{}{}
		out = append(out, s)
	}
	return out
}

// First returns the first attached server that advertises the capability.
func First(servers []Client, c Capability) (Client, bool) {
	for _, s := range servers {
		if s != nil && s.Supports(c) {
			return s, true
		}
	}
	return nil, false
}

// NoServerMessage is the status text for a capability nobody supports.
func NoServerMessage(c Capability) string {
	return "No configured language server supports " + c.String()
}
