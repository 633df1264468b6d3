package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// Client is the server side of one connected player: a wrapper around the
// websocket plus the session's lobby/room/entity/account state. It
// implements Session.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	account *AccountRow
	profile *ProfileRow

	lobby  *Lobby
	room   *Room
	entity *Entity
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         GenerateID(8),
		remoteAddr: remoteAddr,
	}
}

// SessionID returns the connection's id.
func (c *Client) SessionID() string { return c.id }

// Lobby returns the session's current lobby.
func (c *Client) Lobby() *Lobby { return c.lobby }

// SetLobby updates the session's lobby pointer.
func (c *Client) SetLobby(l *Lobby) { c.lobby = l }

// Room returns the session's current room.
func (c *Client) Room() *Room { return c.room }

// SetRoom updates the session's room pointer.
func (c *Client) SetRoom(r *Room) { c.room = r }

// Entity returns the session's bound entity.
func (c *Client) Entity() *Entity { return c.entity }

// SetEntity updates the session's bound entity.
func (c *Client) SetEntity(e *Entity) { c.entity = e }

// Profile returns the loaded profile, or nil.
func (c *Client) Profile() *ProfileRow { return c.profile }

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary (msgpack) frame
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send marshals and delivers a command record to the client.
func (c *Client) Send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.sendRaw(data)
}

// Write is the raw passthrough used by room and lobby broadcasts.
func (c *Client) Write(msg any) {
	c.Send(msg)
}

// SendState delivers a per-tick entity bundle as a msgpack binary frame.
func (c *Client) SendState(msg EntitiesMsg) {
	data, err := msgpack.Marshal(msg)
	if err != nil {
		log.Printf("msgpack marshal error: %v", err)
		return
	}
	framed := make([]byte, len(data)+1)
	framed[0] = 0xFF // binary marker
	copy(framed[1:], data)
	c.sendRaw(framed)
}

// sendRaw queues bytes for the write pump, dropping when the client is too
// slow. A closed channel must not take down the simulation loop.
func (c *Client) sendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

// Session notifications. OnJoinLobby, OnRejectLobby, OnKickLobby and OnPlay
// are invoked by the lobby with the world lock held, so they use the
// lock-free internals and must not call back into locking methods.

// OnJoinLobby notifies the client it joined a lobby.
func (c *Client) OnJoinLobby(l *Lobby) {
	c.Send(JoinLobbyMsg{Cmd: "lobby join", Lobby: l.serialize()})
}

// OnRejectLobby notifies the client a lobby join was rejected.
func (c *Client) OnRejectLobby(l *Lobby, reason string) {
	if reason == "" {
		reason = ErrLobbyFull.Error()
	}
	c.Send(RejectLobbyMsg{Cmd: "lobby reject", LobbyID: l.ID, Reason: reason})
}

// OnKickLobby notifies the client it was removed from a lobby.
func (c *Client) OnKickLobby(l *Lobby, reason string, forced bool) {
	c.Send(KickLobbyMsg{Cmd: "lobby kick", LobbyID: l.ID, Reason: reason, Forced: forced})
}

// OnPlay notifies the client it entered room play.
func (c *Client) OnPlay() {
	msg := PlayMsg{Cmd: "play"}
	if c.lobby != nil {
		msg.LobbyID = c.lobby.ID
	}
	if c.room != nil {
		info := c.room.getInfo()
		msg.Room = &info
	}
	if c.entity != nil {
		pos := c.entity.Pos
		msg.Pos = &pos
		msg.EntityID = c.entity.ID
	}
	c.Send(msg)
}

// SendRoomTransition notifies the client of its new room, position and
// entity id after a room move.
func (c *Client) SendRoomTransition(room *Room, pos Vec2, entityID string) {
	c.Send(RoomTransitionMsg{
		Cmd:      "room transition",
		Room:     room.GetInfo(),
		Pos:      pos,
		EntityID: entityID,
	})
}

// handleMessage routes one decoded command.
func (c *Client) handleMessage(raw []byte) {
	var in InCommand
	if err := json.Unmarshal(raw, &in); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch in.Cmd {
	case "hello":
		c.handleHello(raw)
	case "message":
		c.handleChatMessage(raw)
	case "login":
		c.handleLogin(raw)
	case "register":
		c.handleRegister(raw)
	case "token":
		c.handleToken(raw)
	case "lobby list":
		c.Send(LobbyListMsg{Cmd: "lobby list", Lobbies: c.hub.lobbies.ListLobbies()})
	case "lobby info":
		c.handleLobbyInfo(raw)
	case "lobby join":
		c.handleLobbyJoin(raw)
	case "lobby leave":
		if c.lobby != nil {
			c.lobby.KickPlayer(c, "you left the lobby", false)
		}
	case "room transition":
		c.handleRoomTransition(raw)
	case "player controls":
		c.handlePlayerControls(raw)
	}
}

func (c *Client) handleHello(raw []byte) {
	var cmd HelloCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	log.Printf("hello from client: %s", cmd.Kappa)
	c.Send(HelloMsg{Cmd: "hello", Str: "hello from the server!"})
}

func (c *Client) handleChatMessage(raw []byte) {
	var cmd MessageCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	log.Printf("message from client: %s", cmd.Msg)
	c.Send(MessageMsg{Cmd: "message", Msg: cmd.Msg + " indeed"})
}

func (c *Client) handleLogin(raw []byte) {
	if c.hub.auth == nil {
		c.Send(AuthResultMsg{Cmd: "login", Status: "fail", Reason: "persistence is disabled"})
		return
	}
	var cmd CredentialsCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	account, token, err := c.hub.auth.Login(cmd.Username, cmd.Password, c.remoteAddr)
	if err != nil {
		c.Send(AuthResultMsg{Cmd: "login", Status: "fail", Reason: err.Error()})
		return
	}
	c.login(account, token)
}

func (c *Client) handleRegister(raw []byte) {
	if c.hub.auth == nil {
		c.Send(AuthResultMsg{Cmd: "register", Status: "fail", Reason: "persistence is disabled"})
		return
	}
	var cmd CredentialsCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	account, token, err := c.hub.auth.Register(cmd.Username, cmd.Password)
	if err != nil {
		c.Send(AuthResultMsg{Cmd: "register", Status: "fail", Reason: err.Error()})
		return
	}
	c.register(account, token)
}

// handleToken resumes a session from a previously issued JWT.
func (c *Client) handleToken(raw []byte) {
	if c.hub.auth == nil {
		c.Send(AuthResultMsg{Cmd: "login", Status: "fail", Reason: "persistence is disabled"})
		return
	}
	var cmd TokenCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	aid, username, err := c.hub.auth.ValidateToken(cmd.Token)
	if err != nil {
		c.Send(AuthResultMsg{Cmd: "login", Status: "fail", Reason: "invalid token"})
		return
	}
	c.login(&AccountRow{ID: aid, Username: username}, cmd.Token)
}

func (c *Client) handleLobbyInfo(raw []byte) {
	var cmd LobbyInfoCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	l := c.hub.lobbies.GetLobby(cmd.LobbyID)
	if l == nil {
		c.Send(MessageMsg{Cmd: "message", Msg: "no such lobby"})
		return
	}
	c.Send(LobbyInfoMsg{Cmd: "lobby info", Lobby: l.Serialize()})
}

func (c *Client) handleLobbyJoin(raw []byte) {
	var cmd LobbyJoinCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	var l *Lobby
	if cmd.LobbyID != "" {
		l = c.hub.lobbies.GetLobby(cmd.LobbyID)
	} else {
		l = c.hub.lobbies.FindOrCreate()
	}
	if l == nil {
		c.Send(MessageMsg{Cmd: "message", Msg: "no such lobby"})
		return
	}
	// rejections are delivered via OnRejectLobby
	l.AddPlayer(c)
}

func (c *Client) handleRoomTransition(raw []byte) {
	if c.lobby == nil || c.room == nil {
		return
	}
	var cmd RoomTransitionCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	target := c.lobby.FindRoom(cmd.RoomTo)
	if target == nil {
		log.Printf("room transition to unknown room %q", cmd.RoomTo)
		return
	}
	c.room.MovePlayer(c, target)
}

func (c *Client) handlePlayerControls(raw []byte) {
	if c.room == nil {
		return
	}
	var cmd PlayerControlsCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}
	c.room.ApplyControls(c, cmd)
}

// login binds an authenticated account and loads its profile. A failed
// profile lookup is logged; the session continues without one.
func (c *Client) login(account *AccountRow, token string) {
	c.account = account
	profile, err := c.hub.db.GetProfile(account.ID)
	if err != nil {
		log.Printf("error loading profile for account %d: %v", account.ID, err)
	} else if profile == nil {
		log.Printf("error: couldn't find a profile for account %d", account.ID)
	} else {
		c.profile = profile
	}
	c.Send(AuthResultMsg{Cmd: "login", Status: "success", Token: token})
}

// register binds a fresh account with a fresh profile.
func (c *Client) register(account *AccountRow, token string) {
	c.account = account
	c.profile = &ProfileRow{AccountID: account.ID}
	c.save()
	c.Send(AuthResultMsg{Cmd: "register", Status: "success", Token: token})
}

// save persists the profile's current lobby, room and position. Best-effort:
// failures are logged and never fatal to the session.
func (c *Client) save() {
	if c.hub.db == nil || c.profile == nil {
		return
	}
	if c.lobby != nil {
		c.profile.LobbyID = c.lobby.ID
	}
	if c.room != nil {
		c.profile.Room = c.room.gameMap.Name
	}
	if c.entity != nil {
		c.profile.X = c.entity.Pos.X
		c.profile.Y = c.entity.Pos.Y
	}
	if err := c.hub.db.SaveProfile(c.profile); err != nil {
		log.Printf("error while saving profile: %v", err)
	}
}

// onDisconnect tears down all session state immediately: save, then lobby
// kick, which cascades into room and entity removal.
func (c *Client) onDisconnect() {
	c.save()
	if c.lobby != nil {
		c.lobby.KickPlayer(c, "disconnected", true)
	}
}
