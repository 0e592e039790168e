package app

import (
	"time"

	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

// Wire message kinds carried in the envelope "type" field.
const (
	KindJoin         = "join"
	KindLeave        = "leave"
	KindJoined       = "joined"
	KindDisconnected = "disconnected"
	KindCodeChange   = "code-change"
	KindSyncCode     = "sync-code"
	KindChat         = "chat-message"
	KindPing         = "ping"
	KindPong         = "pong"
)

// Envelope is the minimal decode used to dispatch an inbound frame.
type Envelope struct {
	Type string `json:"type"`
}

// Inbound payloads.

type JoinRequest struct {
	RoomID   domain.RoomID `json:"roomId"`
	Username string        `json:"username"`
}

type CodeChangeRequest struct {
	RoomID domain.RoomID `json:"roomId"`
	Code   string        `json:"code"`
}

type SyncCodeRequest struct {
	SocketID core.ConnID `json:"socketId"`
	Code     string      `json:"code"`
}

type ChatRequest struct {
	RoomID   domain.RoomID `json:"roomId"`
	Username string        `json:"username"`
	Message  string        `json:"message"`
}

// Outbound payloads.

// JoinedBroadcast goes to every member of the room, the joiner included.
// Receiving it is what prompts each existing member to push its own
// sync-code snapshot at the new socket id.
type JoinedBroadcast struct {
	Type     string           `json:"type"`
	Clients  []core.MemberDTO `json:"clients"`
	Username string           `json:"username"`
	SocketID core.ConnID      `json:"socketId"`
}

type DisconnectedBroadcast struct {
	Type     string      `json:"type"`
	SocketID core.ConnID `json:"socketId"`
	Username string      `json:"username"`
}

type CodeChangeEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type SyncCodeEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type ChatBroadcast struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	System    bool      `json:"system,omitempty"`
}

type PongReply struct {
	Type string `json:"type"`
}
