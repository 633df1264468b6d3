package main

import (
	"errors"
	"testing"
)

func TestLobbyJoinPlacesPlayerInStartingRoom(t *testing.T) {
	l := newTestLobby(t, testConfig())
	if len(l.Rooms()) != 2 {
		t.Fatalf("expected 2 rooms (one per map), got %d", len(l.Rooms()))
	}

	s := newFakeSession("s")
	if err := l.AddPlayer(s); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if s.Lobby() != l {
		t.Errorf("session not bound to the lobby")
	}
	if s.plays != 1 {
		t.Errorf("OnPlay called %d times, want 1", s.plays)
	}
	if s.Room() == nil || s.Room().Map().Name != "Overworld" {
		t.Errorf("session not placed in the starting room")
	}
	if s.Entity() == nil {
		t.Errorf("no player entity spawned")
	}
	if l.PlayerCount() != 1 {
		t.Errorf("player count = %d, want 1", l.PlayerCount())
	}
}

func TestLobbyFullRejection(t *testing.T) {
	cfg := testConfig()
	cfg.Lobby.MaxPlayers = 1
	l := newTestLobby(t, cfg)

	a := newFakeSession("a")
	b := newFakeSession("b")
	if err := l.AddPlayer(a); err != nil {
		t.Fatalf("first join: %v", err)
	}

	err := l.AddPlayer(b)
	if !errors.Is(err, ErrLobbyFull) {
		t.Errorf("err = %v, want ErrLobbyFull", err)
	}
	if len(b.rejects) != 1 || b.rejects[0] != "lobby is full!" {
		t.Errorf("rejection reasons = %v", b.rejects)
	}
	if l.PlayerCount() != 1 {
		t.Errorf("player count = %d after rejection, want 1", l.PlayerCount())
	}
	if b.Lobby() != nil {
		t.Errorf("rejected session bound to the lobby")
	}
}

func TestLobbyRejectsDoubleJoin(t *testing.T) {
	l := newTestLobby(t, testConfig())
	s := newFakeSession("s")
	if err := l.AddPlayer(s); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := l.AddPlayer(s); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("err = %v, want ErrAlreadyJoined", err)
	}
	if l.PlayerCount() != 1 {
		t.Errorf("player count = %d, want 1", l.PlayerCount())
	}
}

func TestLobbyRequireLogin(t *testing.T) {
	cfg := testConfig()
	cfg.RequireLogin = true
	l := newTestLobby(t, cfg)

	anon := newFakeSession("anon")
	if err := l.AddPlayer(anon); !errors.Is(err, ErrLoginRequired) {
		t.Errorf("err = %v, want ErrLoginRequired", err)
	}

	user := newFakeSession("user")
	user.profile = &ProfileRow{AccountID: 1}
	if err := l.AddPlayer(user); err != nil {
		t.Errorf("logged-in join failed: %v", err)
	}
}

func TestLobbySwitch(t *testing.T) {
	cfg := testConfig()
	l1 := newTestLobby(t, cfg)
	l2 := newTestLobby(t, cfg)

	s := newFakeSession("s")
	if err := l1.AddPlayer(s); err != nil {
		t.Fatalf("join l1: %v", err)
	}
	if err := l2.AddPlayer(s); err != nil {
		t.Fatalf("join l2: %v", err)
	}

	if l1.PlayerCount() != 0 || l2.PlayerCount() != 1 {
		t.Errorf("counts = %d/%d, want 0/1", l1.PlayerCount(), l2.PlayerCount())
	}
	if s.Lobby() != l2 {
		t.Errorf("session bound to the wrong lobby")
	}
	if len(s.kicks) != 1 || s.kicks[0] != "changing lobbies" {
		t.Errorf("kick reasons = %v", s.kicks)
	}
	if s.kickForced[0] {
		t.Errorf("a lobby switch is not a forced kick")
	}
}

func TestLobbyLeaveDetachesRoom(t *testing.T) {
	l := newTestLobby(t, testConfig())
	s := newFakeSession("s")
	if err := l.AddPlayer(s); err != nil {
		t.Fatal(err)
	}
	entity := s.Entity()

	l.KickPlayer(s, "you left the lobby", false)

	if s.Lobby() != nil || s.Room() != nil {
		t.Errorf("session still attached after leaving")
	}
	if entity != nil && !entity.Removed() {
		t.Errorf("player entity survived the leave")
	}
	if l.PlayerCount() != 0 {
		t.Errorf("player count = %d, want 0", l.PlayerCount())
	}
}

func TestLobbyClose(t *testing.T) {
	l := newTestLobby(t, testConfig())
	a := newFakeSession("a")
	b := newFakeSession("b")
	l.AddPlayer(a)
	l.AddPlayer(b)

	l.Close()

	if l.Status() != LobbyClosed {
		t.Errorf("status = %q, want closed", l.Status())
	}
	if l.PlayerCount() != 0 {
		t.Errorf("players remain after close")
	}
	for _, s := range []*fakeSession{a, b} {
		if len(s.kicks) != 1 || s.kicks[0] != "lobby is closing!" {
			t.Errorf("session %s kick reasons = %v", s.id, s.kicks)
		}
		if !s.kickForced[0] {
			t.Errorf("closing kick should be forced")
		}
	}

	// a closed lobby never accepts again
	c := newFakeSession("c")
	if err := l.AddPlayer(c); !errors.Is(err, ErrLobbyClosed) {
		t.Errorf("err = %v, want ErrLobbyClosed", err)
	}
}

func TestProfileRestoresRoom(t *testing.T) {
	l := newTestLobby(t, testConfig())
	s := newFakeSession("s")
	s.profile = &ProfileRow{AccountID: 1, Room: "Cave"}
	if err := l.AddPlayer(s); err != nil {
		t.Fatal(err)
	}
	if s.Room() == nil || s.Room().Map().Name != "Cave" {
		t.Errorf("profile room not restored")
	}
}

func TestProfileUnknownRoomFallsBack(t *testing.T) {
	l := newTestLobby(t, testConfig())
	s := newFakeSession("s")
	s.profile = &ProfileRow{AccountID: 1, Room: "Atlantis"}
	if err := l.AddPlayer(s); err != nil {
		t.Fatal(err)
	}
	if s.Room() == nil || s.Room().Map().Name != "Overworld" {
		t.Errorf("unknown saved room should fall back to the starting room")
	}
}

func TestLobbySerialize(t *testing.T) {
	cfg := testConfig()
	cfg.Lobby.MaxPlayers = 8
	l := newTestLobby(t, cfg)
	l.AddPlayer(newFakeSession("s"))

	ser := l.Serialize()
	if ser.LobbyID != l.ID {
		t.Errorf("id mismatch")
	}
	if ser.Status != LobbyOpen || ser.Full {
		t.Errorf("status = %q full=%v", ser.Status, ser.Full)
	}
	if ser.PlayerCount != 1 || ser.MaxPlayers != 8 {
		t.Errorf("counts = %d/%d", ser.PlayerCount, ser.MaxPlayers)
	}
	if len(ser.Rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(ser.Rooms))
	}
	total := 0
	for _, r := range ser.Rooms {
		total += r.PlayerCount
	}
	if total != 1 {
		t.Errorf("room player counts sum to %d, want 1", total)
	}
}

func TestLobbyManager(t *testing.T) {
	cfg := testConfig()
	cfg.Lobby.MaxPlayers = 1
	maps, err := BuildMapRegistry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	lm := NewLobbyManager(cfg, DefaultEntityRegistry(), maps, nil)

	l1 := lm.FindOrCreate()
	if l1 == nil {
		t.Fatal("no lobby created")
	}
	defer lm.CloseLobby(l1.ID)
	if lm.GetLobby(l1.ID) != l1 {
		t.Errorf("GetLobby did not return the created lobby")
	}

	// a non-full lobby is reused
	if l := lm.FindOrCreate(); l != l1 {
		t.Errorf("expected the open lobby to be reused")
	}

	// a full lobby forces a new one
	l1.AddPlayer(newFakeSession("s"))
	l2 := lm.FindOrCreate()
	if l2 == nil || l2 == l1 {
		t.Errorf("expected a fresh lobby once the first is full")
	}
	if l2 != nil {
		defer lm.CloseLobby(l2.ID)
	}

	if got := len(lm.ListLobbies()); got != 2 {
		t.Errorf("ListLobbies = %d entries, want 2", got)
	}

	lm.CloseLobby(l1.ID)
	if lm.GetLobby(l1.ID) != nil {
		t.Errorf("closed lobby still listed")
	}
}
