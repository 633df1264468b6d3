package main

// Session is the narrow contract the simulation core needs from a connected
// player endpoint. All notification methods are fire-and-forget: a dead
// socket must never surface an error back into the tick loop.
type Session interface {
	// SessionID identifies the endpoint for logging and membership checks.
	SessionID() string

	// Send delivers a command record to this session.
	Send(msg any)
	// Write is the raw passthrough used by broadcasts.
	Write(msg any)
	// SendState delivers a per-tick entity bundle (delta or full snapshot).
	SendState(msg EntitiesMsg)

	OnJoinLobby(lobby *Lobby)
	OnRejectLobby(lobby *Lobby, reason string)
	OnKickLobby(lobby *Lobby, reason string, forced bool)
	OnPlay()
	SendRoomTransition(room *Room, pos Vec2, entityID string)

	// Membership pointers. A session is in at most one lobby and one room at
	// a time and holds at most one bound entity.
	Lobby() *Lobby
	SetLobby(l *Lobby)
	Room() *Room
	SetRoom(r *Room)
	Entity() *Entity
	SetEntity(e *Entity)

	// Profile returns the session's loaded profile, or nil when not logged
	// in or persistence is disabled.
	Profile() *ProfileRow
}
