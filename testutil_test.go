package main

import "testing"

// fakeSession implements Session and records everything sent to it.
type fakeSession struct {
	id      string
	lobby   *Lobby
	room    *Room
	entity  *Entity
	profile *ProfileRow

	sent        []any
	states      []EntitiesMsg
	rejects     []string
	kicks       []string
	kickForced  []bool
	plays       int
	transitions []RoomTransitionMsg
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (f *fakeSession) SessionID() string        { return f.id }
func (f *fakeSession) Send(msg any)             { f.sent = append(f.sent, msg) }
func (f *fakeSession) Write(msg any)            { f.sent = append(f.sent, msg) }
func (f *fakeSession) SendState(msg EntitiesMsg) { f.states = append(f.states, msg) }

func (f *fakeSession) OnJoinLobby(l *Lobby) { f.sent = append(f.sent, JoinLobbyMsg{Cmd: "lobby join"}) }
func (f *fakeSession) OnRejectLobby(l *Lobby, reason string) {
	f.rejects = append(f.rejects, reason)
}
func (f *fakeSession) OnKickLobby(l *Lobby, reason string, forced bool) {
	f.kicks = append(f.kicks, reason)
	f.kickForced = append(f.kickForced, forced)
}
func (f *fakeSession) OnPlay() { f.plays++ }
func (f *fakeSession) SendRoomTransition(room *Room, pos Vec2, entityID string) {
	f.transitions = append(f.transitions, RoomTransitionMsg{
		Cmd: "room transition", Room: room.GetInfo(), Pos: pos, EntityID: entityID,
	})
}

func (f *fakeSession) Lobby() *Lobby       { return f.lobby }
func (f *fakeSession) SetLobby(l *Lobby)   { f.lobby = l }
func (f *fakeSession) Room() *Room         { return f.room }
func (f *fakeSession) SetRoom(r *Room)     { f.room = r }
func (f *fakeSession) Entity() *Entity     { return f.entity }
func (f *fakeSession) SetEntity(e *Entity) { f.entity = e }
func (f *fakeSession) Profile() *ProfileRow { return f.profile }

// testConfig returns a two-map config with persistence and journaling off.
func testConfig() *Config {
	cfg := defaultConfig()
	cfg.DBPath = ""
	cfg.Maps = []MapSpec{
		{
			Name: "Overworld", Width: 1344, Height: 768, Contents: "[]",
			StartPositions: []Vec2{{X: 128, Y: 128}, {X: 256, Y: 128}},
		},
		{
			Name: "Cave", Width: 640, Height: 480, Contents: "[]",
			StartPositions: []Vec2{{X: 64, Y: 64}},
		},
	}
	return &cfg
}

// newTestRoom builds a standalone room for the first test map with the given
// contents. Its tick loop is not started; tests call Tick directly.
func newTestRoom(t *testing.T, cfg *Config, contents string) *Room {
	t.Helper()
	if contents != "" {
		cfg.Maps[0].Contents = contents
	}
	maps, err := BuildMapRegistry(cfg)
	if err != nil {
		t.Fatalf("BuildMapRegistry: %v", err)
	}
	r, err := NewRoom(cfg, DefaultEntityRegistry(), maps, cfg.Maps[0].Name, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	return r
}

// newTestLobby builds a lobby over the test config's maps. Room loops are
// not started.
func newTestLobby(t *testing.T, cfg *Config) *Lobby {
	t.Helper()
	maps, err := BuildMapRegistry(cfg)
	if err != nil {
		t.Fatalf("BuildMapRegistry: %v", err)
	}
	return NewLobby(cfg, DefaultEntityRegistry(), maps, nil)
}
