package domain

import "sync"

// Registry maps user ids to their live connections. A user may hold zero, one,
// or several connections at once (one per open session). It is safe for
// concurrent use by session handlers and in-flight fanouts: readers see either
// the pre- or post-mutation state of a user's set, never a partial one.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[Connection]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[Connection]struct{}),
	}
}

// Register associates a connection with a user id. Registering the same
// connection twice is a no-op; additional distinct connections are additive.
func (r *Registry) Register(userID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Connection]struct{}, 1)
		r.conns[userID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes exactly the given connection from the user's set. It is
// a no-op if the connection was already absent, so duplicate or late close
// events are harmless. The user's entry is pruned when its last connection
// goes away.
func (r *Registry) Unregister(userID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections. The
// result is a copy; registry mutations after the call do not affect it. An
// unknown user yields an empty slice.
func (r *Registry) ConnectionsFor(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Len returns the number of users with at least one live connection.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
