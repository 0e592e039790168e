package domain

// RoomID is an opaque room identifier. Rooms exist implicitly: the first
// join creates one, the last leave makes it garbage.
type RoomID string
