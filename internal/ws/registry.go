package ws

import (
	"context"
	"sync"
)

// Conn is a live, message-oriented transport owned by the Registry once registered.
// Send must not block on network I/O: implementations queue the frame and report
// an error only when the connection can no longer accept frames.
type Conn interface {
	ID() string
	Send(ctx context.Context, frame []byte) error
}

// Registry tracks the open connections of every user.
type Registry struct {
	mu    sync.RWMutex
	conns map[uint]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uint]map[Conn]struct{}),
	}
}

// Register adds conn to the user's set. Registering the same conn twice is a no-op.
// It reports whether this was the user's first live connection.
func (r *Registry) Register(userID uint, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[userID] = set
	}
	set[conn] = struct{}{}
	return !ok
}

// Unregister removes conn from the user's set and drops the user entry once it is empty.
// Unknown users or connections are ignored. It reports whether the user has no
// connections left after the call.
func (r *Registry) Unregister(conn Conn, userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, found := set[conn]; !found {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

// ConnectionsFor returns a snapshot of the user's connections, safe to iterate
// while the registry is being mutated.
func (r *Registry) ConnectionsFor(userID uint) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Users returns the IDs of every user with at least one live connection.
func (r *Registry) Users() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]uint, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
