package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

// Orchestrator implements the session protocol on top of the registry:
// the join/leave state machine, the document-change fan-out rule, the
// late-joiner catch-up relay and the chat broadcaster. The gateway only
// decodes envelopes and calls in here.
type Orchestrator struct {
	Registry *Registry
	presence *graceTimers
	now      func() time.Time
}

func NewOrchestrator(reg *Registry, grace time.Duration) *Orchestrator {
	o := &Orchestrator{
		Registry: reg,
		now:      time.Now,
	}
	o.presence = newGraceTimers(grace, o.expire)
	return o
}

// Connect binds a fresh transport to its connection id.
func (o *Orchestrator) Connect(sid core.ConnID, sig core.SignalConnection) {
	o.Registry.Bind(sid, sig)
}

// Activity notes any decodable inbound frame from sid. A connection in
// its grace window returns to joined state with no broadcast.
func (o *Orchestrator) Activity(sid core.ConnID) {
	o.presence.Cancel(sid)
}

// Join admits sid into a room. An empty or whitespace-only display name
// is rejected with domain.ErrInvalidIdentity; the caller must terminate
// the connection and no event is emitted. On success every current
// member (the joiner included) receives the joined broadcast with the
// full member list, and the rest of the room gets a system chat
// announcement.
func (o *Orchestrator) Join(sid core.ConnID, room domain.RoomID, displayName string) error {
	o.presence.Cancel(sid)

	if err := o.Registry.Join(sid, room, displayName); err != nil {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(room)).Msg("join rejected: invalid identity")
		return err
	}
	name, _ := o.Registry.Name(sid)

	clients := o.Registry.Members(room)
	joined := JoinedBroadcast{
		Type:     KindJoined,
		Clients:  clients,
		Username: name,
		SocketID: sid,
	}
	for _, m := range o.Registry.memberConns(room, "") {
		o.send(m.Signal, joined)
	}

	o.systemChat(room, sid, fmt.Sprintf("%s joined the chat.", name))
	return nil
}

// CodeChange relays a document edit to every other member of the room.
// The sender never sees its own edit echoed back; recipients apply
// last-write-wins locally.
func (o *Orchestrator) CodeChange(sid core.ConnID, room domain.RoomID, code string) {
	ev := CodeChangeEvent{Type: KindCodeChange, Code: code}
	for _, m := range o.Registry.memberConns(room, sid) {
		o.send(m.Signal, ev)
	}
}

// SyncCode relays one member's document snapshot to the named target
// only. A target that already went away is dropped silently: catch-up
// is best-effort.
func (o *Orchestrator) SyncCode(sid core.ConnID, target core.ConnID, code string) {
	sig, ok := o.Registry.Signal(target)
	if !ok {
		log.Debug().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("target", string(target)).Msg("sync-code target gone")
		return
	}
	o.send(sig, SyncCodeEvent{Type: KindSyncCode, Code: code})
}

// Chat stamps a user message with the server clock and fans it out to
// the whole room, sender included, so everyone observes one ordering.
func (o *Orchestrator) Chat(sid core.ConnID, room domain.RoomID, username, message string) {
	o.presence.Cancel(sid)
	msg := ChatBroadcast{
		Type:      KindChat,
		Username:  username,
		Message:   message,
		Timestamp: o.now(),
	}
	for _, m := range o.Registry.memberConns(room, "") {
		o.send(m.Signal, msg)
	}
}

// Disconnected handles transport closure for sid. The membership is not
// touched yet: the connection stays listed through the grace window so a
// quick reconnect never flickers the member list. Rooms are captured
// now because the registry record may be gone by the time the timer
// fires.
//
// closing is the transport that actually closed. A page reload can bind
// a fresh transport to the same connection id before the old read loop
// unwinds; its stale teardown must not start a grace window against the
// live connection. A nil closing skips the check.
func (o *Orchestrator) Disconnected(sid core.ConnID, closing core.SignalConnection) {
	if closing != nil {
		if current, ok := o.Registry.Signal(sid); ok && current != closing {
			log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("stale transport closure ignored")
			return
		}
	}

	rooms := o.Registry.RoomsOf(sid)
	if len(rooms) == 0 {
		o.Registry.RemoveConnection(sid)
		return
	}
	o.presence.Schedule(sid, rooms)
}

// InGrace reports whether sid currently has a pending disconnect timer.
func (o *Orchestrator) InGrace(sid core.ConnID) bool {
	return o.presence.Pending(sid)
}

// expire runs when a grace timer fires with no reconnect. Per room it
// drops the membership and announces the departure (system chat plus
// the disconnected notification) to the members remaining at removal
// time. Removal and snapshot happen in one registry critical section,
// so a join interleaved with the expiry either still sees the departing
// member and gets its disconnected frame, or never sees it at all.
// Fan-out is best-effort: one room failing never skips the rest.
func (o *Orchestrator) expire(sid core.ConnID, rooms []domain.RoomID) {
	name, _ := o.Registry.Name(sid)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("username", name).Int("rooms", len(rooms)).Msg("disconnect grace expired")

	gone := DisconnectedBroadcast{Type: KindDisconnected, SocketID: sid, Username: name}
	for _, room := range rooms {
		remaining := o.Registry.removeFromRoom(sid, room)
		chat := ChatBroadcast{
			Type:      KindChat,
			Username:  domain.SystemSender,
			Message:   fmt.Sprintf("%s left the chat.", name),
			Timestamp: o.now(),
			System:    true,
		}
		for _, m := range remaining {
			o.send(m.Signal, chat)
			o.send(m.Signal, gone)
		}
	}
	o.Registry.RemoveConnection(sid)
}

// systemChat announces to every member of the room except skip, using
// the reserved system identity.
func (o *Orchestrator) systemChat(room domain.RoomID, skip core.ConnID, message string) {
	msg := ChatBroadcast{
		Type:      KindChat,
		Username:  domain.SystemSender,
		Message:   message,
		Timestamp: o.now(),
		System:    true,
	}
	for _, m := range o.Registry.memberConns(room, skip) {
		o.send(m.Signal, msg)
	}
}

func (o *Orchestrator) send(sig core.SignalConnection, v any) {
	if sig == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("marshal outbound")
		return
	}
	if err := sig.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Msg("dropped outbound frame")
	}
}
