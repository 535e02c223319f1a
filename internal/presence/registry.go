// Package presence tracks which users currently hold a live connection.
// It is the single source of truth for "who is online".
package presence

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Conn is the minimal handle the registry keeps per user. TrySend must not
// block; it reports whether the payload was accepted.
type Conn interface {
	TrySend(data []byte) bool
}

type entry struct {
	conn   Conn
	connID uuid.UUID
}

// Registry maps a user to at most one live connection. A new registration
// for the same user replaces the previous one (last-registered-wins).
//
// Unregister behavior depends on strict mode. In the default mode a
// disconnect clears the user's entry unconditionally, so a stale connection
// going away can erase the mapping of a newer one. Strict mode only clears
// the entry when the disconnecting connection is the one on record.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]entry
	strict  bool
}

func NewRegistry(strict bool) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]entry),
		strict:  strict,
	}
}

// Register inserts or overwrites the mapping for userID and returns the
// connection id identifying this registration.
func (r *Registry) Register(userID uuid.UUID, conn Conn) uuid.UUID {
	connID := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = entry{conn: conn, connID: connID}
	return connID
}

func (r *Registry) Unregister(userID, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.strict {
		if e, ok := r.entries[userID]; !ok || e.connID != connID {
			return
		}
	}
	delete(r.entries, userID)
}

func (r *Registry) Lookup(userID uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Snapshot returns the ids of all online users, sorted for stable output.
func (r *Registry) Snapshot() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
