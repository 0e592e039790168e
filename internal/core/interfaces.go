package core

// Frame is a raw wire payload (JSON-encoded envelope).
type Frame []byte

// ConnID identifies one live transport session. The gateway mints it;
// everything else only references it.
type ConnID string

// SignalConnection abstracts the messaging transport of one connection.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberDTO is the read-only room-listing view of a participant.
type MemberDTO struct {
	SID      ConnID `json:"socketId"`
	Username string `json:"username"`
}
