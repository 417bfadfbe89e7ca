package gateway

import "sync"

// registry indexes the connections held by this instance
type registry struct {
	mu    sync.RWMutex
	users map[string]map[string]*Connection // user id -> conn id -> connection
}

func newRegistry() *registry {
	return &registry{users: make(map[string]map[string]*Connection)}
}

// add stores conn and returns whether it is the user's first connection here,
// plus connections on the same platform signed in with another token
func (r *registry) add(conn *Connection) (first bool, stale []*Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[conn.UserId]
	if !ok {
		conns = make(map[string]*Connection, 2)
		r.users[conn.UserId] = conns
	}
	for _, other := range conns {
		if other.PlatformId == conn.PlatformId && other.Token != conn.Token {
			stale = append(stale, other)
		}
	}
	conns[conn.Id] = conn
	return len(conns) == 1, stale
}

// remove drops conn and reports whether the user has no connection left here
func (r *registry) remove(conn *Connection) (removed, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[conn.UserId]
	if !ok || conns[conn.Id] != conn {
		return false, false
	}
	delete(conns, conn.Id)
	if len(conns) == 0 {
		delete(r.users, conn.UserId)
		return true, true
	}
	return true, false
}

func (r *registry) connections(userId string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.users[userId]
	out := make([]*Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (r *registry) has(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userId]) > 0
}

// counts returns connected users and connections
func (r *registry) counts() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.users {
		conns += len(c)
	}
	return len(r.users), conns
}
