package core

import (
	"sync"

	"github.com/samber/lo"
)

// Registry tracks the live members of the community room.
// Membership is process-lifetime only and rebuilt by clients rejoining.
type Registry struct {
	mu      sync.RWMutex
	members map[string]*Connection
}

// NewRegistry constructs an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		members: make(map[string]*Connection),
	}
}

// Join adds a connection to the room. Returns true if newly added.
func (r *Registry) Join(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[c.ID]; exists {
		return false
	}
	r.members[c.ID] = c
	return true
}

// Leave removes a connection from the room. Returns true if removed.
func (r *Registry) Leave(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[connID]; !exists {
		return false
	}
	delete(r.members, connID)
	return true
}

// Members returns a snapshot of the member connection ids.
func (r *Registry) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.members)
}

// Snapshot returns the member connections at call time.
// Later joins and leaves do not affect the returned slice.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.members)
}

// contains reports whether connID is currently a member.
func (r *Registry) contains(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[connID]
	return ok
}

// Len returns the number of members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// CloseAll closes and removes every member. Used at shutdown.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	members := r.members
	r.members = make(map[string]*Connection)
	r.mu.Unlock()

	for _, c := range members {
		c.Close(CloseShutdown)
	}
	return len(members)
}
