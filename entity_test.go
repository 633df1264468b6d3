package main

import (
	"encoding/json"
	"testing"
)

func TestPlaceMeeting(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 200, 200, nil)
	player := r.SpawnEntity("Player", 100, 100, nil)
	if box == nil || player == nil {
		t.Fatal("spawn failed")
	}

	if !player.PlaceMeeting(200, 200, "solid") {
		t.Errorf("probe on top of a solid box should meet")
	}
	if player.PlaceMeeting(100, 100, "solid") {
		t.Errorf("probe far from the box should not meet")
	}
	if !player.PlaceMeeting(200, 200, "Box") {
		t.Errorf("type tag query should match the box")
	}
	if !player.PlaceMeeting(200, 200, "oBox") {
		t.Errorf("object name query should match the box")
	}
	if player.PlaceMeeting(200, 200, "Player") {
		t.Errorf("box should not match a Player query")
	}
	if !player.PlaceMeeting(200, 200, nil) {
		t.Errorf("nil query should match any solid overlap")
	}
	if !player.PlaceMeeting(200, 200, BoxDef) {
		t.Errorf("def query should match the box")
	}
}

func TestPlaceMeetingExcludesSelf(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 200, 200, nil)
	if box.PlaceMeeting(box.Pos.X, box.Pos.Y, "solid") {
		t.Errorf("an entity must not collide with itself")
	}
}

func TestPlaceMeetingAll(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	r.SpawnEntity("Box", 200, 200, nil)
	r.SpawnEntity("Box", 216, 200, nil)
	player := r.SpawnEntity("Player", 100, 100, nil)

	hits := player.PlaceMeetingAll(208, 200, "solid")
	if len(hits) != 2 {
		t.Errorf("expected 2 hits between the boxes, got %d", len(hits))
	}
}

func TestMatchesType(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 200, 200, nil)

	tests := []struct {
		query any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"Box", true},
		{"oBox", true},
		{"solid", true},
		{"Player", false},
		{BoxDef, true},
		{PlayerDef, false},
		{42, false},
	}
	for _, tt := range tests {
		if got := box.MatchesType(tt.query); got != tt.want {
			t.Errorf("MatchesType(%v) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestEntityRemove(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 200, 200, nil)
	player := r.SpawnEntity("Player", 100, 100, nil)

	if !player.PlaceMeeting(200, 200, "solid") {
		t.Fatalf("box should be meetable before removal")
	}

	box.Remove()
	if !box.Removed() {
		t.Errorf("Removed() should report true")
	}
	if player.PlaceMeeting(200, 200, "solid") {
		t.Errorf("removed box still hit by placeMeeting")
	}
	for _, e := range r.Entities() {
		if e == box {
			t.Errorf("removed box still in the room's entity list")
		}
	}
	if r.grid.Count() != 0 {
		t.Errorf("removed box still registered in the spatial index")
	}

	// second Remove is logged, not fatal
	box.Remove()
}

func TestEntityDieRunsCallbacksInOrder(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 200, 200, nil)

	var order []string
	box.OnDeath(func(*Entity) { order = append(order, "death") })
	box.OnRemove(func(*Entity) { order = append(order, "remove") })

	box.Die()
	if len(order) != 2 || order[0] != "death" || order[1] != "remove" {
		t.Errorf("callback order = %v, want [death remove]", order)
	}
	if !box.Removed() {
		t.Errorf("Die should remove the entity")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 300, 150, nil)
	box.Scale = Vec2{X: 2, Y: 1}
	box.SetProp("hp", 5.0)

	b, err := json.Marshal([]SerializedEntity{box.Serialize()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	r2 := newTestRoom(t, testConfig(), "")
	r2.Unwrap(b)

	entities := r2.Entities()
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity after unwrap, got %d", len(entities))
	}
	e := entities[0]
	if e.Def.Type != "Box" {
		t.Errorf("type = %q, want Box", e.Def.Type)
	}
	if e.Pos.X != 300 || e.Pos.Y != 150 {
		t.Errorf("pos = %v", e.Pos)
	}
	if e.Scale.X != 2 || e.Scale.Y != 1 {
		t.Errorf("scale = %v", e.Scale)
	}
	if hp, ok := e.Props["hp"].(float64); !ok || hp != 5 {
		t.Errorf("hp prop = %v", e.Props["hp"])
	}
}

func TestDeltaOnlyOnChange(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	r.SpawnEntity("Box", 200, 200, nil)

	r.Tick()
	if len(r.bundle) != 1 {
		t.Fatalf("first tick should bundle the new box, got %d entries", len(r.bundle))
	}
	r.Tick()
	if len(r.bundle) != 0 {
		t.Errorf("unchanged box bundled again: %d entries", len(r.bundle))
	}

	// a mutation re-enters the bundle
	r.Entities()[0].Pos.X = 250
	r.Tick()
	if len(r.bundle) != 1 {
		t.Errorf("moved box not bundled, got %d entries", len(r.bundle))
	}
}

func TestSendEveryTick(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	r.reg.Register(&EntityDef{Type: "Beacon", SendEveryTick: true})
	r.SpawnEntity("Beacon", 50, 50, nil)

	for i := 0; i < 3; i++ {
		r.Tick()
		if len(r.bundle) != 1 {
			t.Fatalf("tick %d: send-every-tick entity missing from bundle", i)
		}
	}
}

func TestUpdatePanicIsolated(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	r.reg.Register(&EntityDef{
		Type:   "Cursed",
		Update: func(*Entity) { panic("boom") },
	})
	r.SpawnEntity("Cursed", 50, 50, nil)
	r.SpawnEntity("Box", 200, 200, nil)

	r.Tick() // must not panic
	if len(r.fullBundle) != 2 {
		t.Errorf("panicking entity stalled the tick: fullBundle has %d entries", len(r.fullBundle))
	}
}

func TestRegenerateColliderKeepsIndexRegistration(t *testing.T) {
	r := newTestRoom(t, testConfig(), "")
	box := r.SpawnEntity("Box", 200, 200, nil)

	box.Scale = Vec2{X: 3, Y: 3}
	box.RegenerateCollider()

	if !box.Collider().indexed {
		t.Errorf("regenerated collider lost its index registration")
	}
	if box.Collider().HalfW != 48 {
		t.Errorf("scaled collider HalfW = %v, want 48", box.Collider().HalfW)
	}
	if r.grid.Count() != 1 {
		t.Errorf("grid count = %d after regenerate, want 1", r.grid.Count())
	}
}
