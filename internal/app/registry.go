package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

type connEntry struct {
	name   string
	signal core.SignalConnection
}

// memberConn pairs a room member with its transport for fan-out.
type memberConn struct {
	SID    core.ConnID
	Name   string
	Signal core.SignalConnection
}

// Registry is the process-wide session state: connection id to display
// name, room id to member set, connection id to transport. All mutation
// goes through one mutex; nothing here does I/O.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
	rooms map[domain.RoomID]map[core.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
		rooms: make(map[domain.RoomID]map[core.ConnID]struct{}),
	}
}

// Bind associates a live transport with a connection id. A bound
// connection is not yet a participant; it has no display name until a
// valid join.
func (r *Registry) Bind(sid core.ConnID, sig core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[sid]; ok {
		e.signal = sig
		return
	}
	r.conns[sid] = &connEntry{signal: sig}
}

func (r *Registry) Signal(sid core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[sid]
	if !ok || e.signal == nil {
		return nil, false
	}
	return e.signal, true
}

// Join records the display name for sid and adds it to the room's member
// set. A name that is empty after trimming is rejected with
// domain.ErrInvalidIdentity and leaves no trace. Joining the same room
// twice is idempotent.
func (r *Registry) Join(sid core.ConnID, room domain.RoomID, displayName string) error {
	name, err := domain.CleanDisplayName(displayName)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[sid]
	if !ok {
		e = &connEntry{}
		r.conns[sid] = e
	}
	e.name = name

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[core.ConnID]struct{})
		r.rooms[room] = members
	}
	members[sid] = struct{}{}

	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Str("username", name).Msg("joined room")
	return nil
}

// Leave removes sid from the room's member set. Absent membership is a
// no-op, not an error.
func (r *Registry) Leave(sid core.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sid, room)
}

func (r *Registry) leaveLocked(sid core.ConnID, room domain.RoomID) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, sid)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
}

// Members lists the current participants of a room. Connections without
// a recorded display name are not participants and are excluded. An
// unknown room lists as empty.
func (r *Registry) Members(room domain.RoomID) []core.MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]core.MemberDTO, 0, len(members))
	for sid := range members {
		e, ok := r.conns[sid]
		if !ok || e.name == "" {
			continue
		}
		out = append(out, core.MemberDTO{SID: sid, Username: e.name})
	}
	return out
}

// memberConns snapshots the room's participants together with their
// transports, optionally excluding one connection.
func (r *Registry) memberConns(room domain.RoomID, except core.ConnID) []memberConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]memberConn, 0, len(members))
	for sid := range members {
		if sid == except {
			continue
		}
		e, ok := r.conns[sid]
		if !ok || e.name == "" {
			continue
		}
		out = append(out, memberConn{SID: sid, Name: e.name, Signal: e.signal})
	}
	return out
}

// removeFromRoom drops sid from the room and snapshots the remaining
// participants in the same critical section. A concurrent join observes
// the membership either fully present or fully removed, never halfway;
// broadcasting from the returned snapshot keeps the removal effects
// atomic from any other connection's perspective.
func (r *Registry) removeFromRoom(sid core.ConnID, room domain.RoomID) []memberConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sid, room)
	members := r.rooms[room]
	out := make([]memberConn, 0, len(members))
	for m := range members {
		e, ok := r.conns[m]
		if !ok || e.name == "" {
			continue
		}
		out = append(out, memberConn{SID: m, Name: e.name, Signal: e.signal})
	}
	return out
}

// RoomsOf returns every room sid currently belongs to. The presence
// layer captures this set when a transport closes.
func (r *Registry) RoomsOf(sid core.ConnID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RoomID
	for room, members := range r.rooms {
		if _, ok := members[sid]; ok {
			out = append(out, room)
		}
	}
	return out
}

// Name returns the recorded display name for sid, if any.
func (r *Registry) Name(sid core.ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[sid]
	if !ok || e.name == "" {
		return "", false
	}
	return e.name, true
}

// RemoveConnection purges all room memberships and the name record for
// sid.
func (r *Registry) RemoveConnection(sid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room, members := range r.rooms {
		if _, ok := members[sid]; ok {
			r.leaveLocked(sid, room)
		}
	}
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed connection")
}

// Stats reports room and participant counts for the status endpoint.
func (r *Registry) Stats() (rooms, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.conns)
}
