// Package session tracks which connections have joined the chat, under which
// display name and with which presence status, and defines the per-connection
// protocol state machine.
package session

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Tyrowin/gochat-presence/internal/protocol"
)

// CodeNameTaken is the oops error code returned when a display name is already
// held by another connection.
const CodeNameTaken = "NAME_TAKEN"

// Session binds a live connection to a display name and presence status.
type Session struct {
	ConnID   ulid.ULID
	Name     string
	Status   protocol.Status
	JoinedAt time.Time
}

// Entry returns the roster line for the session.
func (s Session) Entry() protocol.Entry {
	return protocol.Entry{Name: s.Name, Status: s.Status}
}

// Registry is the authoritative set of active sessions, keyed by connection,
// with a name index and join ordering.
//
// A Registry is not safe for concurrent use. It is meant to have a single owner
// that serializes access, so that a mutation and the roster computed from it
// can be performed as one step.
type Registry struct {
	sessions map[ulid.ULID]*Session
	byName   map[string]*Session
	order    []ulid.ULID
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[ulid.ULID]*Session),
		byName:   make(map[string]*Session),
		now:      time.Now,
	}
}

// Join creates the session for connID, or replaces the existing one in place
// (keeping its roster position) with the new name and status Online.
//
// Names must pass protocol.ValidateName and must not be held by another
// connection; rejoining under the connection's own name is allowed.
func (r *Registry) Join(connID ulid.ULID, name string) (Session, error) {
	if err := protocol.ValidateName(name); err != nil {
		return Session{}, err //nolint:wrapcheck // already an oops error with code and context
	}

	if holder, ok := r.byName[name]; ok && holder.ConnID != connID {
		return Session{}, oops.Code(CodeNameTaken).
			With("name", name).
			With("conn_id", connID.String()).
			Errorf("name %q is already taken", name)
	}

	if existing, ok := r.sessions[connID]; ok {
		delete(r.byName, existing.Name)
		existing.Name = name
		existing.Status = protocol.StatusOnline
		existing.JoinedAt = r.now()
		r.byName[name] = existing
		return *existing, nil
	}

	s := &Session{
		ConnID:   connID,
		Name:     name,
		Status:   protocol.StatusOnline,
		JoinedAt: r.now(),
	}
	r.sessions[connID] = s
	r.byName[name] = s
	r.order = append(r.order, connID)
	return *s, nil
}

// Leave removes and returns the session for connID. It reports false, and leaves
// the registry untouched, when the connection never joined or already left.
func (r *Registry) Leave(connID ulid.ULID) (Session, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}

	delete(r.sessions, connID)
	delete(r.byName, s.Name)
	if i := slices.Index(r.order, connID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return *s, true
}

// SetStatus updates the status of the session named name. Unknown names are
// ignored and reported as false.
func (r *Registry) SetStatus(name string, status protocol.Status) bool {
	s, ok := r.byName[name]
	if !ok {
		return false
	}
	s.Status = status
	return true
}

// Lookup returns a copy of the session for connID.
func (r *Registry) Lookup(connID ulid.ULID) (Session, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ByName returns a copy of the session holding name.
func (r *Registry) ByName(name string) (Session, bool) {
	s, ok := r.byName[name]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Snapshot returns the roster in join order.
func (r *Registry) Snapshot() []protocol.Entry {
	entries := make([]protocol.Entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.sessions[id].Entry())
	}
	return entries
}
