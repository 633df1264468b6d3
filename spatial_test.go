package main

import "testing"

func TestSpatialGridInsertAndQuery(t *testing.T) {
	g := NewSpatialGrid(1000, 1000)

	a := NewRectCollider(100, 100, 32, 32)
	b := NewRectCollider(110, 110, 32, 32)
	far := NewRectCollider(900, 900, 32, 32)
	g.Insert(a)
	g.Insert(b)
	g.Insert(far)

	if g.Count() != 3 {
		t.Fatalf("expected 3 colliders, got %d", g.Count())
	}

	probe := NewRectCollider(105, 105, 32, 32)
	potentials := g.PotentialsFor(probe)
	found := map[*Collider]bool{}
	for _, c := range potentials {
		found[c] = true
	}
	if !found[a] || !found[b] {
		t.Errorf("nearby colliders missing from potentials: a=%v b=%v", found[a], found[b])
	}
	if found[far] {
		t.Errorf("distant collider should not be a potential")
	}
}

func TestSpatialGridRemove(t *testing.T) {
	g := NewSpatialGrid(500, 500)
	c := NewRectCollider(100, 100, 200, 200) // spans multiple cells
	g.Insert(c)
	if g.Count() != 1 {
		t.Fatalf("expected 1 collider after insert, got %d", g.Count())
	}

	g.Remove(c)
	if g.Count() != 0 {
		t.Errorf("expected 0 colliders after remove, got %d", g.Count())
	}
	probe := NewRectCollider(100, 100, 32, 32)
	if len(g.PotentialsFor(probe)) != 0 {
		t.Errorf("removed collider still returned as potential")
	}

	// removing twice is a no-op
	g.Remove(c)
	if g.Count() != 0 {
		t.Errorf("double remove corrupted the grid")
	}
}

func TestSpatialGridUpdateMove(t *testing.T) {
	g := NewSpatialGrid(1000, 1000)
	c := NewRectCollider(100, 100, 32, 32)
	g.Insert(c)

	c.X = 800
	c.Y = 800
	g.Update(c)

	newProbe := NewRectCollider(800, 800, 32, 32)
	oldProbe := NewRectCollider(100, 100, 32, 32)

	foundNew := false
	for _, other := range g.PotentialsFor(newProbe) {
		if other == c {
			foundNew = true
		}
	}
	if !foundNew {
		t.Errorf("moved collider not found at its new position")
	}
	for _, other := range g.PotentialsFor(oldProbe) {
		if other == c {
			t.Errorf("moved collider still registered at its old position")
		}
	}
	if g.Count() != 1 {
		t.Errorf("expected 1 collider after move, got %d", g.Count())
	}
}

func TestSpatialGridUpdateUnregistered(t *testing.T) {
	g := NewSpatialGrid(500, 500)
	c := NewRectCollider(50, 50, 32, 32)
	g.Update(c) // never inserted; Update should register it
	if g.Count() != 1 {
		t.Errorf("Update on unregistered collider should insert it, count=%d", g.Count())
	}
}

func TestSpatialGridOutOfBoundsClamped(t *testing.T) {
	g := NewSpatialGrid(200, 200)
	c := NewRectCollider(-500, 5000, 32, 32)
	g.Insert(c) // must not panic
	g.Remove(c)
	if g.Count() != 0 {
		t.Errorf("out-of-bounds collider not cleanly removed")
	}
}

func TestSpatialGridPotentialsDeduplicated(t *testing.T) {
	g := NewSpatialGrid(1000, 1000)
	big := NewRectCollider(250, 250, 400, 400) // spans many cells
	g.Insert(big)

	probe := NewRectCollider(250, 250, 400, 400)
	count := 0
	for _, other := range g.PotentialsFor(probe) {
		if other == big {
			count++
		}
	}
	if count != 1 {
		t.Errorf("collider spanning multiple cells returned %d times, want 1", count)
	}
}
