package main

// Every message carries a "cmd" string, client to server and back. Incoming
// messages are flat JSON objects decoded twice: once for the cmd, once into
// the typed struct for that cmd.

// InCommand extracts the command name from an incoming message.
type InCommand struct {
	Cmd string `json:"cmd"`
}

// Client -> Server commands
type HelloCmd struct {
	Kappa string `json:"kappa"`
}

type MessageCmd struct {
	Msg string `json:"msg"`
}

type CredentialsCmd struct { // login and register
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenCmd struct {
	Token string `json:"token"`
}

type LobbyInfoCmd struct {
	LobbyID string `json:"lobbyid"`
}

type LobbyJoinCmd struct {
	LobbyID string `json:"lobbyid"` // "" = let the matchmaker pick
}

type RoomTransitionCmd struct {
	RoomTo string `json:"room_to"`
}

type PlayerControlsCmd struct {
	Move  Vec2 `json:"move"`
	KJump bool `json:"kjump"`
}

// Server -> Client messages

type HelloMsg struct {
	Cmd string `json:"cmd"` // "hello"
	Str string `json:"str"`
}

type MessageMsg struct {
	Cmd string `json:"cmd"` // "message"
	Msg string `json:"msg"`
}

// AuthResultMsg answers login and register commands.
type AuthResultMsg struct {
	Cmd    string `json:"cmd"` // "login" or "register"
	Status string `json:"status"` // "success" or "fail"
	Reason string `json:"reason,omitempty"`
	Token  string `json:"token,omitempty"`
}

type LobbyListMsg struct {
	Cmd     string            `json:"cmd"` // "lobby list"
	Lobbies []SerializedLobby `json:"lobbies"`
}

type LobbyInfoMsg struct {
	Cmd   string          `json:"cmd"` // "lobby info"
	Lobby SerializedLobby `json:"lobby"`
}

type JoinLobbyMsg struct {
	Cmd   string          `json:"cmd"` // "lobby join"
	Lobby SerializedLobby `json:"lobby"`
}

type RejectLobbyMsg struct {
	Cmd     string `json:"cmd"` // "lobby reject"
	LobbyID string `json:"lobbyid"`
	Reason  string `json:"reason"`
}

type KickLobbyMsg struct {
	Cmd     string `json:"cmd"` // "lobby kick"
	LobbyID string `json:"lobbyid"`
	Reason  string `json:"reason"`
	Forced  bool   `json:"forced"`
}

// PlayMsg tells the session it entered room play.
type PlayMsg struct {
	Cmd      string   `json:"cmd"` // "play"
	LobbyID  string   `json:"lobbyid"`
	Room     *RoomInfo `json:"room,omitempty"`
	Pos      *Vec2    `json:"pos,omitempty"`
	EntityID string   `json:"entity_id,omitempty"`
}

type RoomTransitionMsg struct {
	Cmd      string   `json:"cmd"` // "room transition"
	Room     RoomInfo `json:"room"`
	Pos      Vec2     `json:"pos"`
	EntityID string   `json:"entity_id"`
}

// EntitiesMsg carries a per-tick entity bundle: the delta broadcast to all
// members, or the full snapshot sent once to each recent joiner. It is
// encoded as a msgpack binary frame.
type EntitiesMsg struct {
	Cmd      string             `json:"cmd" msgpack:"cmd"` // "entities"
	Room     string             `json:"room" msgpack:"room"`
	Entities []SerializedEntity `json:"entities" msgpack:"entities"`
}

type EntityDeathMsg struct {
	Cmd string `json:"cmd"` // "entity death"
	ID  string `json:"id"`
}

type EntityRemoveMsg struct {
	Cmd string `json:"cmd"` // "entity remove"
	ID  string `json:"id"`
}

type RoomKickMsg struct {
	Cmd     string `json:"cmd"` // "room kick"
	Message string `json:"message"`
}

// SerializedEntity is the wire-visible state of one entity and the de facto
// save format for map contents.
type SerializedEntity struct {
	ID         string         `json:"id,omitempty" msgpack:"id"`
	Type       string         `json:"type" msgpack:"type"`
	ObjectName string         `json:"object_name,omitempty" msgpack:"object_name"`
	X          float64        `json:"x" msgpack:"x"`
	Y          float64        `json:"y" msgpack:"y"`
	XScale     float64        `json:"xscale" msgpack:"xscale"`
	YScale     float64        `json:"yscale" msgpack:"yscale"`
	Spd        Vec2           `json:"spd" msgpack:"spd"`
	Props      map[string]any `json:"props,omitempty" msgpack:"props,omitempty"`
}

// SerializedRoom is the wire-visible state of one room.
type SerializedRoom struct {
	PlayerCount int                `json:"player_count"`
	Map         MapInfo            `json:"map"`
	Entities    []SerializedEntity `json:"entities"`
}

// RoomInfo is the short room summary used in lobby listings.
type RoomInfo struct {
	Map         MapInfo `json:"map"`
	PlayerCount int     `json:"player_count"`
}

// SerializedLobby is the wire-visible state of one lobby.
type SerializedLobby struct {
	LobbyID     string     `json:"lobbyid"`
	Status      string     `json:"status"`
	MaxPlayers  int        `json:"max_players"`
	PlayerCount int        `json:"player_count"`
	Rooms       []RoomInfo `json:"rooms"`
	Full        bool       `json:"full"`
}
