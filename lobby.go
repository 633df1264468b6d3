package main

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Rejection sentinels returned by Lobby.AddPlayer. The reason string is also
// what the rejected session receives.
var (
	ErrLobbyFull     = errors.New("lobby is full!")
	ErrAlreadyJoined = errors.New("already in the lobby")
	ErrLoginRequired = errors.New("login to join a lobby!")
	ErrLobbyClosed   = errors.New("lobby is closed")
)

const (
	LobbyOpen   = "open"
	LobbyClosed = "closed"
)

// Lobby groups sessions across a fixed set of rooms, one per configured map.
// In an MMO sense this is a shard. Its mutex is the world lock shared with
// every room it owns.
type Lobby struct {
	mu sync.Mutex

	ID         string
	status     string
	players    []Session
	rooms      []*Room
	maxPlayers int // 0 = unlimited

	cfg     *Config
	journal *Journal
}

// NewLobby creates a lobby with one room per registered map. A room whose
// construction fails is skipped; the lobby itself survives.
func NewLobby(cfg *Config, reg *EntityRegistry, maps *MapRegistry, journal *Journal) *Lobby {
	l := &Lobby{
		ID:         uuid.NewString(),
		status:     LobbyOpen,
		maxPlayers: cfg.Lobby.MaxPlayers,
		cfg:        cfg,
		journal:    journal,
	}
	for _, m := range maps.All() {
		room, err := NewRoom(cfg, reg, maps, m, l)
		if err != nil {
			log.Printf("lobby %s: %v", l.ID, err)
			continue
		}
		l.rooms = append(l.rooms, room)
	}
	journal.Write(RoomEvent{Event: "lobby create", ID: l.ID})
	return l
}

// Rooms returns the lobby's rooms in map-registry order.
func (l *Lobby) Rooms() []*Room { return l.rooms }

// FindRoom returns the lobby's room for the given map name, or nil.
func (l *Lobby) FindRoom(mapName string) *Room {
	for _, r := range l.rooms {
		if r.gameMap.Name == mapName {
			return r
		}
	}
	return nil
}

// AddPlayer validates capacity and membership, then registers the session
// and immediately places it into initial room play. Rejections are returned
// as sentinel errors and also delivered via OnRejectLobby; they never panic.
func (l *Lobby) AddPlayer(s Session) error {
	// implicit lobby switch: tear down the old membership instead of
	// rejecting
	if other := s.Lobby(); other != nil && other != l {
		other.KickPlayer(s, "changing lobbies", false)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.status == LobbyClosed:
		s.OnRejectLobby(l, ErrLobbyClosed.Error())
		return ErrLobbyClosed
	case l.full():
		log.Printf("warning: can't add a player - the lobby is full")
		s.OnRejectLobby(l, ErrLobbyFull.Error())
		return ErrLobbyFull
	case l.isMember(s):
		log.Printf("warning: can't add a player who's already in the lobby")
		s.OnRejectLobby(l, ErrAlreadyJoined.Error())
		return ErrAlreadyJoined
	case l.cfg.RequireLogin && s.Profile() == nil:
		log.Printf("warning: can't add a player who's not logged in")
		s.OnRejectLobby(l, ErrLoginRequired.Error())
		return ErrLoginRequired
	}

	l.players = append(l.players, s)
	s.SetLobby(l)
	s.OnJoinLobby(l)
	l.journal.Write(RoomEvent{Event: "lobby join", ID: l.ID, Detail: s.SessionID()})

	l.addIntoPlay(s)
	return nil
}

// addIntoPlay places a member into its starting room: the profile's saved
// room when present, the configured starting room otherwise.
func (l *Lobby) addIntoPlay(s Session) {
	if !l.cfg.RoomsEnabled {
		s.OnPlay()
		return
	}

	roomName := l.cfg.Room.StartingRoom
	if p := s.Profile(); p != nil && p.Room != "" {
		roomName = p.Room
	}
	room := l.FindRoom(roomName)
	if room == nil {
		room = l.FindRoom(l.cfg.Room.StartingRoom)
	}
	if room == nil {
		log.Printf("lobby %s: no usable starting room for session %s", l.ID, s.SessionID())
		return
	}
	room.addPlayer(s)
	s.OnPlay()
}

// KickPlayer removes membership, detaches the session's room and notifies
// the session. forced distinguishes ejection from a voluntary leave.
func (l *Lobby) KickPlayer(s Session, reason string, forced bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kickPlayer(s, reason, forced)
}

func (l *Lobby) kickPlayer(s Session, reason string, forced bool) {
	for i, p := range l.players {
		if p == s {
			l.players = append(l.players[:i], l.players[i+1:]...)
			break
		}
	}
	if room := s.Room(); room != nil {
		room.removePlayer(s)
	}
	s.OnKickLobby(l, reason, forced)
	s.SetLobby(nil)
	l.journal.Write(RoomEvent{Event: "lobby kick", ID: l.ID, Detail: s.SessionID()})
}

// Broadcast sends a record to every member.
func (l *Lobby) Broadcast(msg any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.players {
		p.Write(msg)
	}
}

// Close kicks every member and marks the lobby closed. A closed lobby is
// never reused.
func (l *Lobby) Close() {
	l.mu.Lock()
	for len(l.players) > 0 {
		l.kickPlayer(l.players[0], "lobby is closing!", true)
	}
	for _, r := range l.rooms {
		r.close()
	}
	l.status = LobbyClosed
	l.journal.Write(RoomEvent{Event: "lobby close", ID: l.ID})
	l.mu.Unlock()

	for _, r := range l.rooms {
		r.Stop()
	}
}

// PlayerCount returns the number of members.
func (l *Lobby) PlayerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

// Status returns "open" or "closed".
func (l *Lobby) Status() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Full reports whether the lobby is at capacity.
func (l *Lobby) Full() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.full()
}

func (l *Lobby) full() bool {
	return l.maxPlayers > 0 && len(l.players) >= l.maxPlayers
}

func (l *Lobby) isMember(s Session) bool {
	for _, p := range l.players {
		if p == s {
			return true
		}
	}
	return false
}

// Serialize returns the lobby's wire-visible state.
func (l *Lobby) Serialize() SerializedLobby {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.serialize()
}

func (l *Lobby) serialize() SerializedLobby {
	s := SerializedLobby{
		LobbyID:     l.ID,
		Status:      l.status,
		MaxPlayers:  l.maxPlayers,
		PlayerCount: len(l.players),
		Full:        l.full(),
	}
	for _, r := range l.rooms {
		s.Rooms = append(s.Rooms, r.getInfo())
	}
	return s
}

const maxLobbies = 100

// LobbyManager handles creation and lookup of lobbies.
type LobbyManager struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby

	cfg     *Config
	reg     *EntityRegistry
	maps    *MapRegistry
	journal *Journal
}

// NewLobbyManager creates an empty manager.
func NewLobbyManager(cfg *Config, reg *EntityRegistry, maps *MapRegistry, journal *Journal) *LobbyManager {
	return &LobbyManager{
		lobbies: make(map[string]*Lobby),
		cfg:     cfg,
		reg:     reg,
		maps:    maps,
		journal: journal,
	}
}

// CreateLobby creates a lobby and starts its room loops. Returns nil when
// the lobby limit is reached.
func (lm *LobbyManager) CreateLobby() *Lobby {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if len(lm.lobbies) >= maxLobbies {
		return nil
	}
	l := NewLobby(lm.cfg, lm.reg, lm.maps, lm.journal)
	lm.lobbies[l.ID] = l
	for _, r := range l.rooms {
		go r.Run()
	}
	return l
}

// GetLobby returns a lobby by id, or nil.
func (lm *LobbyManager) GetLobby(id string) *Lobby {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.lobbies[id]
}

// FindOrCreate returns the first open lobby with a free slot, creating one
// when none exists. This is the default matchmaking policy; callers with
// their own policy can use CreateLobby/GetLobby directly.
func (lm *LobbyManager) FindOrCreate() *Lobby {
	lm.mu.RLock()
	for _, l := range lm.lobbies {
		if l.Status() == LobbyOpen && !l.Full() {
			lm.mu.RUnlock()
			return l
		}
	}
	lm.mu.RUnlock()
	return lm.CreateLobby()
}

// CloseLobby closes and discards a lobby.
func (lm *LobbyManager) CloseLobby(id string) {
	lm.mu.Lock()
	l, ok := lm.lobbies[id]
	if ok {
		delete(lm.lobbies, id)
	}
	lm.mu.Unlock()
	if l != nil {
		l.Close()
	}
}

// ListLobbies returns the wire-visible state of every lobby.
func (lm *LobbyManager) ListLobbies() []SerializedLobby {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	list := make([]SerializedLobby, 0, len(lm.lobbies))
	for _, l := range lm.lobbies {
		list = append(list, l.Serialize())
	}
	return list
}
