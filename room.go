package main

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Room runs the fixed-rate simulation loop for one map. All mutable room
// state is guarded by mu, which is shared with the owning lobby so that
// network callbacks and tick callbacks interleave at well-defined points and
// a cross-room move is a single unit of work.
type Room struct {
	mu *sync.Mutex

	cfg     *Config
	reg     *EntityRegistry
	lobby   *Lobby
	journal *Journal

	gameMap  *GameMap
	tickrate int
	width    float64
	height   float64

	grid     *SpatialGrid
	entities []*Entity

	players        []Session
	recentlyJoined []Session

	bundle     []SerializedEntity // entities that changed this tick
	fullBundle []SerializedEntity // every entity, for recent joiners

	restTimer float64

	tickListeners []func(*Room)

	running bool
	stop    chan struct{}
}

// NewRoom resolves its map (by name against the registry, or directly) and
// instantiates a fresh spatial index. A name that resolves to nothing is a
// configuration error fatal to this room only.
func NewRoom(cfg *Config, reg *EntityRegistry, maps *MapRegistry, mapRef any, lobby *Lobby) (*Room, error) {
	var gameMap *GameMap
	switch m := mapRef.(type) {
	case string:
		gameMap = maps.FindByName(m)
		if gameMap == nil {
			return nil, fmt.Errorf("could not find a map called %q", m)
		}
	case *GameMap:
		gameMap = m
	default:
		return nil, fmt.Errorf("map reference must be a name or *GameMap, got %T", mapRef)
	}

	r := &Room{
		cfg:      cfg,
		reg:      reg,
		lobby:    lobby,
		gameMap:  gameMap,
		tickrate: cfg.TPS,
		width:    gameMap.Width,
		height:   gameMap.Height,
		grid:     NewSpatialGrid(gameMap.Width, gameMap.Height),
		stop:     make(chan struct{}),
	}
	if lobby != nil {
		r.mu = &lobby.mu
		r.journal = lobby.journal
	} else {
		r.mu = &sync.Mutex{}
	}

	r.mu.Lock()
	r.unwrap(gameMap.Contents)
	r.mu.Unlock()
	return r, nil
}

// Map returns the room's map.
func (r *Room) Map() *GameMap { return r.gameMap }

// Run drives the tick loop at the configured rate until Stop.
func (r *Room) Run() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(r.tickrate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Tick()
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the tick loop.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.running = false
		close(r.stop)
	}
}

// OnTick subscribes an external listener invoked after every executed tick.
func (r *Room) OnTick(fn func(*Room)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickListeners = append(r.tickListeners, fn)
}

// Tick runs one simulation step.
func (r *Room) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tick()
}

func (r *Room) tick() {
	start := time.Now()

	// empty rooms rest after the configured idle time
	if len(r.players) == 0 {
		r.restTimer += 1.0 / float64(r.tickrate)
		if r.cfg.Room.RestTimeout > 0 && r.restTimer > r.cfg.Room.RestTimeout {
			return
		}
	} else {
		r.restTimer = 0
	}

	r.bundle = nil
	r.fullBundle = nil

	// entities may remove themselves (or others) during update
	live := make([]*Entity, len(r.entities))
	copy(live, r.entities)
	for _, e := range live {
		if e.Removed() {
			continue
		}
		e.Update()
		if !e.Removed() {
			r.fullBundle = append(r.fullBundle, e.Serialize())
		}
	}

	for _, fn := range r.tickListeners {
		fn(r)
	}

	// delta to everyone, then the full snapshot to each recent joiner; the
	// recently-joined list is drained only on a tick that actually ran, so
	// a join on the wake tick still gets that tick's snapshot
	if len(r.bundle) > 0 {
		delta := EntitiesMsg{Cmd: "entities", Room: r.gameMap.Name, Entities: r.bundle}
		for _, p := range r.players {
			p.SendState(delta)
		}
	}
	for _, p := range r.recentlyJoined {
		p.SendState(EntitiesMsg{Cmd: "entities", Room: r.gameMap.Name, Entities: r.fullBundle})
	}
	r.recentlyJoined = nil

	if elapsed := time.Since(start); r.cfg.VerboseLag && elapsed > time.Second/time.Duration(r.tickrate) {
		log.Printf("lag detected in room %s: tick took %v", r.gameMap.Name, elapsed)
	}
}

// appendDelta adds an entity's bundle to this tick's delta batch.
func (r *Room) appendDelta(s SerializedEntity) {
	r.bundle = append(r.bundle, s)
}

// unwrap deserializes a map's initial entity list (a JSON string or an
// already-parsed slice) into live entities. Unknown types are skipped with a
// warning.
func (r *Room) unwrap(contents any) {
	var list []SerializedEntity
	switch c := contents.(type) {
	case string:
		if err := json.Unmarshal([]byte(c), &list); err != nil {
			log.Printf("error unwrapping room %s contents: %v", r.gameMap.Name, err)
			return
		}
	case []byte:
		if err := json.Unmarshal(c, &list); err != nil {
			log.Printf("error unwrapping room %s contents: %v", r.gameMap.Name, err)
			return
		}
	case []SerializedEntity:
		list = c
	default:
		log.Printf("error unwrapping room %s contents: unknown type %T (string or slice expected)", r.gameMap.Name, contents)
		return
	}

	for _, s := range list {
		def := r.reg.Lookup(s.Type)
		if def == nil {
			log.Printf("warning: entity of type %q not found, skipping", s.Type)
			continue
		}
		e := r.spawnEntity(s.Type, s.X, s.Y, nil)
		if e == nil {
			continue
		}
		scale := Vec2{X: s.XScale, Y: s.YScale}
		if scale.X == 0 {
			scale.X = 1
		}
		if scale.Y == 0 {
			scale.Y = 1
		}
		e.Scale = scale
		e.Spd = s.Spd
		e.RegenerateCollider()
		for name, value := range s.Props {
			e.SetProp(name, value)
		}
	}
}

// Unwrap is the exported entry point for loading serialized entities into a
// running room.
func (r *Room) Unwrap(contents any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unwrap(contents)
}

// SpawnEntity constructs an entity of the given type bound to this room (and
// a session, if any), runs its create hook and emits a spawn notification.
// Returns nil when spawning is disabled globally or the type is unknown.
func (r *Room) SpawnEntity(typeName string, x, y float64, session Session) *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawnEntity(typeName, x, y, session)
}

func (r *Room) spawnEntity(typeName string, x, y float64, session Session) *Entity {
	if !r.cfg.EntitiesEnabled {
		log.Printf("warning: spawning entities is disabled globally, SpawnEntity returning nil")
		return nil
	}
	def := r.reg.Lookup(typeName)
	if def == nil {
		log.Printf("warning: unknown entity type %q", typeName)
		return nil
	}

	e := newEntity(def, r, x, y, session)
	e.Create()
	r.entities = append(r.entities, e)

	e.OnDeath(func(ent *Entity) {
		r.broadcast(EntityDeathMsg{Cmd: "entity death", ID: ent.ID})
		r.journal.Write(RoomEvent{Event: "entity death", Room: r.gameMap.Name, ID: ent.ID})
	})
	e.OnRemove(func(ent *Entity) {
		r.broadcast(EntityRemoveMsg{Cmd: "entity remove", ID: ent.ID})
	})

	r.journal.Write(RoomEvent{Event: "spawn", Room: r.gameMap.Name, ID: e.ID, Detail: typeName})
	return e
}

// detachEntity removes an entity from the room's list, preserving order.
func (r *Room) detachEntity(e *Entity) {
	for i, other := range r.entities {
		if other == e {
			r.entities = append(r.entities[:i], r.entities[i+1:]...)
			return
		}
	}
}

// Entities returns a copy of the live entity list.
func (r *Room) Entities() []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// AddPlayer registers the session as a member, spawns its player entity and
// queues it for full-snapshot delivery on the next tick.
func (r *Room) AddPlayer(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPlayer(s)
}

func (r *Room) addPlayer(s Session) {
	r.players = append(r.players, s)
	s.SetRoom(r)

	if r.cfg.EntitiesEnabled {
		pos := r.gameMap.GetStartPos(len(r.players) - 1)
		if e := r.spawnEntity("Player", pos.X, pos.Y, s); e != nil {
			s.SetEntity(e)
		}
	}
	r.recentlyJoined = append(r.recentlyJoined, s)
	r.journal.Write(RoomEvent{Event: "player join", Room: r.gameMap.Name, ID: s.SessionID()})
}

// RemovePlayer unregisters the session and removes its bound entity.
func (r *Room) RemovePlayer(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removePlayer(s)
}

func (r *Room) removePlayer(s Session) {
	for i, p := range r.players {
		if p == s {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	for i, p := range r.recentlyJoined {
		if p == s {
			r.recentlyJoined = append(r.recentlyJoined[:i], r.recentlyJoined[i+1:]...)
			break
		}
	}

	s.SetRoom(nil)
	if e := s.Entity(); e != nil {
		if !e.Removed() {
			e.Remove()
		}
		s.SetEntity(nil)
	}
	r.journal.Write(RoomEvent{Event: "player leave", Room: r.gameMap.Name, ID: s.SessionID()})
}

// MovePlayer moves a session to another room as a single unit of work, then
// notifies the session of the transition.
func (r *Room) MovePlayer(s Session, target *Room) {
	if target == nil || target == r {
		return
	}
	if r.mu == target.mu {
		r.mu.Lock()
		r.removePlayer(s)
		target.addPlayer(s)
		r.mu.Unlock()
	} else {
		r.mu.Lock()
		r.removePlayer(s)
		r.mu.Unlock()
		target.mu.Lock()
		target.addPlayer(s)
		target.mu.Unlock()
	}

	pos := Vec2{}
	entityID := ""
	if e := s.Entity(); e != nil {
		pos = e.Pos
		entityID = e.ID
	}
	s.SendRoomTransition(target, pos, entityID)
}

// ApplyControls applies a player-controls command to the session's entity.
func (r *Room) ApplyControls(s Session, cmd PlayerControlsCmd) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := s.Entity()
	if e == nil || e.Removed() {
		return
	}
	e.Spd.X += cmd.Move.X * MoveAccel
	e.Spd.Y += cmd.Move.Y * MoveAccel
	if cmd.KJump && e.PlaceMeeting(e.Pos.X, e.Pos.Y+1, "solid") {
		e.Spd.Y = -JumpSpeed
	}
}

// Broadcast sends a command record to every member.
func (r *Room) Broadcast(msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast(msg)
}

func (r *Room) broadcast(msg any) {
	for _, p := range r.players {
		p.Write(msg)
	}
}

// Close broadcasts a room kick and forcibly removes every player.
func (r *Room) Close() {
	r.mu.Lock()
	r.close()
	r.mu.Unlock()
	r.Stop()
}

func (r *Room) close() {
	r.broadcast(RoomKickMsg{Cmd: "room kick", Message: "Room is closing"})
	for len(r.players) > 0 {
		r.removePlayer(r.players[0])
	}
	r.journal.Write(RoomEvent{Event: "close", Room: r.gameMap.Name})
}

// PlayerCount returns the number of member sessions.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Serialize returns the room's wire-visible state.
func (r *Room) Serialize() SerializedRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serialize()
}

func (r *Room) serialize() SerializedRoom {
	s := SerializedRoom{
		PlayerCount: len(r.players),
		Map:         r.gameMap.GetInfo(),
	}
	for _, e := range r.entities {
		s.Entities = append(s.Entities, e.Serialize())
	}
	return s
}

// GetInfo returns the room's short summary.
func (r *Room) GetInfo() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getInfo()
}

func (r *Room) getInfo() RoomInfo {
	return RoomInfo{Map: r.gameMap.GetInfo(), PlayerCount: len(r.players)}
}
