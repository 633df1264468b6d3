package main

import "math"

const (
	Gravity      = 0.4  // added to vertical speed each tick
	MaxFallSpeed = 12.0 // terminal velocity, pixels/tick
	GroundFric   = 0.9  // horizontal velocity multiplier while grounded
	MoveAccel    = 0.1  // controls-to-speed multiplier
	JumpSpeed    = 10.0
	MaxUnstick   = 16 // max pixels an overlapping entity is nudged upward
)

// StuckAction is what a physics entity does when it starts a tick already
// overlapping a solid.
type StuckAction int

const (
	StuckClip    StuckAction = 0 // nudge upward until free
	StuckStop    StuckAction = 1 // zero velocity and stay
	StuckDestroy StuckAction = 2 // die
)

// PhysicsState is behavior-owned state for entities that use physicsUpdate.
type PhysicsState struct {
	StuckAction StuckAction
	Grounded    bool
	GravityMul  float64
}

// physicsState returns the entity's physics state, creating it on first use.
func physicsState(e *Entity) *PhysicsState {
	if ps, ok := e.Data.(*PhysicsState); ok {
		return ps
	}
	ps := &PhysicsState{GravityMul: 1}
	e.Data = ps
	return ps
}

// physicsUpdate applies gravity and axis-separated, collision-resolved
// movement against solid entities.
func physicsUpdate(e *Entity) {
	ps := physicsState(e)

	if e.Spd.Y < MaxFallSpeed {
		e.Spd.Y += Gravity * ps.GravityMul
	}

	// stuck response: overlapping a solid before moving at all
	if e.PlaceMeeting(e.Pos.X, e.Pos.Y, "solid") {
		switch ps.StuckAction {
		case StuckStop:
			e.Spd = Vec2{}
		case StuckDestroy:
			e.Die()
			return
		default: // StuckClip
			for i := 1; i <= MaxUnstick; i++ {
				if !e.PlaceMeeting(e.Pos.X, e.Pos.Y-float64(i), "solid") {
					e.Pos.Y -= float64(i)
					break
				}
			}
		}
	}

	moveAxis(e, e.Spd.X, 0)
	moveAxis(e, 0, e.Spd.Y)

	ps.Grounded = e.PlaceMeeting(e.Pos.X, e.Pos.Y+1, "solid")
	if ps.Grounded {
		e.Spd.X *= GroundFric
	}
}

// moveAxis moves the entity along one axis, stepping up to the contact point
// when the full move would hit a solid.
func moveAxis(e *Entity, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	if !e.PlaceMeeting(e.Pos.X+dx, e.Pos.Y+dy, "solid") {
		e.Pos.X += dx
		e.Pos.Y += dy
		return
	}
	// blocked: advance one pixel at a time toward the contact
	stepX := sign(dx)
	stepY := sign(dy)
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	for i := 0; i < steps; i++ {
		if e.PlaceMeeting(e.Pos.X+stepX, e.Pos.Y+stepY, "solid") {
			break
		}
		e.Pos.X += stepX
		e.Pos.Y += stepY
	}
	if dx != 0 {
		e.Spd.X = 0
	}
	if dy != 0 {
		e.Spd.Y = 0
	}
}

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// PlayerDef is the session-bound controllable entity.
var PlayerDef = &EntityDef{
	Type:       "Player",
	ObjectName: "oPlayer",
	BaseSize:   Vec2{X: 32, Y: 48},
	Update:     physicsUpdate,
}

// BoxDef is a solid static obstacle.
var BoxDef = &EntityDef{
	Type:       "Box",
	ObjectName: "oBox",
	BaseSize:   Vec2{X: 32, Y: 32},
	Solid:      true,
	Static:     true,
}

// DefaultEntityRegistry returns a registry with the built-in entity types.
func DefaultEntityRegistry() *EntityRegistry {
	reg := NewEntityRegistry()
	reg.Register(PlayerDef)
	reg.Register(BoxDef)
	return reg
}
