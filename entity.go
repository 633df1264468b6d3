package main

import (
	"bytes"
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// EntityDef describes a concrete entity type. Entities carry a pointer to
// their def; the def's tag is used both for type matching and for
// (de)serialization lookup in the registry.
type EntityDef struct {
	Type       string
	ObjectName string

	BaseSize Vec2
	Solid    bool
	Static   bool
	Trigger  bool
	Tags     []string

	// SendEveryTick forces the entity into every delta bundle even when its
	// serialized state did not change.
	SendEveryTick bool

	// Collider shape. Rect is derived from size unless Verts or Radius are
	// set explicitly.
	Shape  ColliderShape
	Radius float64
	Verts  []Vec2

	// PropNames are the custom properties included in serialization.
	PropNames []string

	// Lifecycle hooks. Create runs once after construction, Update every
	// tick.
	Create func(e *Entity)
	Update func(e *Entity)
}

// EntityRegistry maps type tags to defs. It is passed explicitly to rooms.
type EntityRegistry struct {
	defs map[string]*EntityDef
}

// NewEntityRegistry creates an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{defs: make(map[string]*EntityDef)}
}

// Register adds a def, keyed by both type tag and object name.
func (r *EntityRegistry) Register(def *EntityDef) {
	r.defs[def.Type] = def
	if def.ObjectName != "" {
		r.defs[def.ObjectName] = def
	}
}

// Lookup returns the def for a type tag or object name, or nil.
func (r *EntityRegistry) Lookup(name string) *EntityDef {
	return r.defs[name]
}

// Entity is a simulated object in a room.
type Entity struct {
	ID  string
	Def *EntityDef

	Pos      Vec2
	Spd      Vec2
	Rotation float64
	Scale    Vec2
	BaseSize Vec2

	Tags    []string
	IsSolid bool

	// Props is the open mapping of custom properties; PropNames lists which
	// of them round-trip through serialization.
	Props     map[string]any
	PropNames []string

	// Data holds behavior-owned state (e.g. physics or control state).
	Data any

	Room    *Room
	Session Session

	collider       *Collider
	prevSerialized []byte
	removed        bool

	onDeath  []func(*Entity)
	onRemove []func(*Entity)
}

// newEntity constructs an entity from its def, bound to a room and
// optionally a session. Create must be called afterwards.
func newEntity(def *EntityDef, room *Room, x, y float64, session Session) *Entity {
	e := &Entity{
		ID:       uuid.NewString(),
		Def:      def,
		Pos:      Vec2{X: x, Y: y},
		Scale:    Vec2{X: 1, Y: 1},
		BaseSize: def.BaseSize,
		Tags:     append([]string(nil), def.Tags...),
		IsSolid:  def.Solid,
		Props:    make(map[string]any),
		Room:     room,
		Session:  session,
	}
	if e.BaseSize == (Vec2{}) {
		e.BaseSize = Vec2{X: 64, Y: 64}
	}
	e.PropNames = append(e.PropNames, def.PropNames...)
	return e
}

// Width returns the effective horizontal size.
func (e *Entity) Width() float64 { return e.BaseSize.X * e.Scale.X }

// Height returns the effective vertical size.
func (e *Entity) Height() float64 { return e.BaseSize.Y * e.Scale.Y }

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// solidTagged reports whether the entity participates in the spatial index.
func (e *Entity) solidTagged() bool {
	return e.IsSolid || e.HasTag("solid")
}

// Collider returns the entity's collision volume.
func (e *Entity) Collider() *Collider { return e.collider }

// RegenerateCollider rebuilds the collider from the entity's current size
// and position. Explicit verts/radius on the def win over the derived rect.
func (e *Entity) RegenerateCollider() {
	indexed := e.collider != nil && e.collider.indexed
	if indexed {
		e.Room.grid.Remove(e.collider)
	}
	switch {
	case len(e.Def.Verts) > 0:
		verts := make([]Vec2, len(e.Def.Verts))
		for i, v := range e.Def.Verts {
			verts[i] = Vec2{X: v.X * e.Scale.X, Y: v.Y * e.Scale.Y}
		}
		e.collider = NewPolygonCollider(e.Pos.X, e.Pos.Y, verts)
	case e.Def.Shape == ShapeCircle:
		r := e.Def.Radius
		if r == 0 {
			r = e.BaseSize.X / 2
		}
		e.collider = NewCircleCollider(e.Pos.X, e.Pos.Y, r*e.Scale.X)
	default:
		e.collider = NewRectCollider(e.Pos.X, e.Pos.Y, e.Width(), e.Height())
	}
	e.collider.Owner = e
	if indexed {
		e.Room.grid.Insert(e.collider)
	}
}

// Create runs the one-time creation hook and registers the collider in the
// room's spatial index when the entity is solid.
func (e *Entity) Create() {
	e.RegenerateCollider()
	if e.Def.Create != nil {
		e.Def.Create(e)
	}
	if e.solidTagged() {
		e.Room.grid.Insert(e.collider)
	}
}

// Update advances the entity one tick and appends its bundle to the room's
// delta batch when its serialized state changed. A panicking behavior is
// logged and isolated so it cannot stall the rest of the tick.
func (e *Entity) Update() {
	if e.removed {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("entity %s (%s) update panic: %v", e.ID, e.Def.Type, r)
			}
		}()
		if e.Def.Update != nil {
			e.Def.Update(e)
		}
	}()
	if e.removed { // behavior may have removed the entity
		return
	}
	e.syncCollider()

	serialized, err := json.Marshal(e.Serialize())
	if err != nil {
		log.Printf("entity %s serialize error: %v", e.ID, err)
		return
	}
	if e.Def.SendEveryTick || !bytes.Equal(serialized, e.prevSerialized) {
		e.prevSerialized = serialized
		e.Room.appendDelta(e.Serialize())
	}
}

// syncCollider moves the collider back to the entity's committed position
// after any placeMeeting probes.
func (e *Entity) syncCollider() {
	if e.collider == nil {
		return
	}
	e.collider.X = e.Pos.X
	e.collider.Y = e.Pos.Y
	if e.collider.indexed {
		e.Room.grid.Update(e.collider)
	}
}

// PlaceMeeting probes the candidate position (x,y) against other solid
// entities. typeQuery may be nil (any solid overlap), a string (type tag,
// object name, "solid", or a tag) or an *EntityDef. The collider is left at
// the probe position; it snaps back on the next update.
func (e *Entity) PlaceMeeting(x, y float64, typeQuery any) bool {
	return len(e.placeMeeting(x, y, typeQuery, true)) > 0
}

// PlaceMeetingAll is PlaceMeeting returning every matching entity.
func (e *Entity) PlaceMeetingAll(x, y float64, typeQuery any) []*Entity {
	return e.placeMeeting(x, y, typeQuery, false)
}

func (e *Entity) placeMeeting(x, y float64, typeQuery any, firstOnly bool) []*Entity {
	if e.collider == nil || e.Room == nil {
		return nil
	}
	e.collider.X = x
	e.collider.Y = y
	if e.collider.indexed {
		e.Room.grid.Update(e.collider)
	}

	var hits []*Entity
	for _, other := range e.Room.grid.PotentialsFor(e.collider) {
		if other == e.collider || other.Owner == e {
			continue
		}
		if other.Owner == nil || !other.Owner.MatchesType(typeQuery) {
			continue
		}
		if !Overlaps(e.collider, other) {
			continue
		}
		hits = append(hits, other.Owner)
		if firstOnly {
			break
		}
	}
	return hits
}

// MatchesType implements the polymorphic type match: nil or "" matches
// anything, a string matches the type tag, object name, the literal "solid"
// against solidity, or tag membership; an *EntityDef matches by def.
func (e *Entity) MatchesType(q any) bool {
	switch v := q.(type) {
	case nil:
		return true
	case string:
		if v == "" {
			return true
		}
		if v == e.Def.Type || v == e.Def.ObjectName {
			return true
		}
		if v == "solid" && e.solidTagged() {
			return true
		}
		return e.HasTag(v)
	case *EntityDef:
		return e.Def == v
	default:
		return false
	}
}

// OnDeath subscribes to the entity's death notification.
func (e *Entity) OnDeath(fn func(*Entity)) { e.onDeath = append(e.onDeath, fn) }

// OnRemove subscribes to the entity's removal notification.
func (e *Entity) OnRemove(fn func(*Entity)) { e.onRemove = append(e.onRemove, fn) }

// Die emits the death notification, then removes the entity.
func (e *Entity) Die() {
	if e.removed {
		return
	}
	for _, fn := range e.onDeath {
		fn(e)
	}
	e.Remove()
}

// Remove detaches the entity from its room and spatial index. Calling it on
// an already-removed entity is a programming error; it is guarded and
// logged rather than crashing.
func (e *Entity) Remove() {
	if e.removed {
		log.Printf("warning: Remove called twice on entity %s (%s)", e.ID, e.Def.Type)
		return
	}
	e.removed = true
	for _, fn := range e.onRemove {
		fn(e)
	}
	e.Room.detachEntity(e)
	if e.collider != nil && e.collider.indexed {
		e.Room.grid.Remove(e.collider)
	}
}

// Removed reports whether the entity has been removed from its room.
func (e *Entity) Removed() bool { return e.removed }

// SetProp sets a custom property and declares it for serialization.
func (e *Entity) SetProp(name string, value any) {
	if _, ok := e.Props[name]; !ok {
		declared := false
		for _, n := range e.PropNames {
			if n == name {
				declared = true
				break
			}
		}
		if !declared {
			e.PropNames = append(e.PropNames, name)
		}
	}
	e.Props[name] = value
}

// Serialize returns the entity's wire-visible state.
func (e *Entity) Serialize() SerializedEntity {
	s := SerializedEntity{
		ID:         e.ID,
		Type:       e.Def.Type,
		ObjectName: e.Def.ObjectName,
		X:          e.Pos.X,
		Y:          e.Pos.Y,
		XScale:     e.Scale.X,
		YScale:     e.Scale.Y,
		Spd:        e.Spd,
	}
	if len(e.PropNames) > 0 {
		s.Props = make(map[string]any, len(e.PropNames))
		for _, name := range e.PropNames {
			if v, ok := e.Props[name]; ok {
				s.Props[name] = v
			}
		}
	}
	return s
}
