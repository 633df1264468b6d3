package main

import "math"

// ColliderShape identifies the concrete shape of a collider.
type ColliderShape int

const (
	ShapeRect    ColliderShape = 0 // axis-aligned box
	ShapePolygon ColliderShape = 1 // convex polygon
	ShapeCircle  ColliderShape = 2
)

// Collider is the collision volume owned by exactly one entity. Position is
// the shape's center; rect extents and polygon vertices are relative to it.
type Collider struct {
	Owner *Entity
	X, Y  float64

	Shape  ColliderShape
	HalfW  float64 // rect half extents
	HalfH  float64
	Radius float64 // circle
	Verts  []Vec2  // polygon vertices relative to center, wound consistently

	// grid registration span, maintained by SpatialGrid
	minCX, minCY, maxCX, maxCY int
	indexed                    bool
}

// NewRectCollider creates an axis-aligned box collider centered at (x,y).
func NewRectCollider(x, y, w, h float64) *Collider {
	return &Collider{X: x, Y: y, Shape: ShapeRect, HalfW: w / 2, HalfH: h / 2}
}

// NewCircleCollider creates a circle collider centered at (x,y).
func NewCircleCollider(x, y, r float64) *Collider {
	return &Collider{X: x, Y: y, Shape: ShapeCircle, Radius: r}
}

// NewPolygonCollider creates a convex polygon collider. Vertices are relative
// to the center (x,y).
func NewPolygonCollider(x, y float64, verts []Vec2) *Collider {
	return &Collider{X: x, Y: y, Shape: ShapePolygon, Verts: verts}
}

// BBox returns the axis-aligned bounds of the collider in world space.
func (c *Collider) BBox() (minX, minY, maxX, maxY float64) {
	switch c.Shape {
	case ShapeCircle:
		return c.X - c.Radius, c.Y - c.Radius, c.X + c.Radius, c.Y + c.Radius
	case ShapePolygon:
		minX, minY = math.Inf(1), math.Inf(1)
		maxX, maxY = math.Inf(-1), math.Inf(-1)
		for _, v := range c.Verts {
			x := c.X + v.X
			y := c.Y + v.Y
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
		return minX, minY, maxX, maxY
	default:
		return c.X - c.HalfW, c.Y - c.HalfH, c.X + c.HalfW, c.Y + c.HalfH
	}
}

// worldVerts returns the polygon's vertices in world space. Rect colliders
// are expanded to their four corners so they can share the SAT path.
func (c *Collider) worldVerts() []Vec2 {
	if c.Shape == ShapePolygon {
		out := make([]Vec2, len(c.Verts))
		for i, v := range c.Verts {
			out[i] = Vec2{c.X + v.X, c.Y + v.Y}
		}
		return out
	}
	return []Vec2{
		{c.X - c.HalfW, c.Y - c.HalfH},
		{c.X + c.HalfW, c.Y - c.HalfH},
		{c.X + c.HalfW, c.Y + c.HalfH},
		{c.X - c.HalfW, c.Y + c.HalfH},
	}
}

// Overlaps is the narrow-phase exact test between two colliders.
func Overlaps(a, b *Collider) bool {
	if a.Shape == ShapeCircle && b.Shape == ShapeCircle {
		return circlesOverlap(a.X, a.Y, a.Radius, b.X, b.Y, b.Radius)
	}
	if a.Shape == ShapeRect && b.Shape == ShapeRect {
		return rectsOverlap(a, b)
	}
	if a.Shape == ShapeCircle {
		return polyCircleOverlap(b.worldVerts(), a.X, a.Y, a.Radius)
	}
	if b.Shape == ShapeCircle {
		return polyCircleOverlap(a.worldVerts(), b.X, b.Y, b.Radius)
	}
	return polysOverlap(a.worldVerts(), b.worldVerts())
}

// circlesOverlap checks if two circles overlap
func circlesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

func rectsOverlap(a, b *Collider) bool {
	return math.Abs(a.X-b.X) <= a.HalfW+b.HalfW &&
		math.Abs(a.Y-b.Y) <= a.HalfH+b.HalfH
}

// pointInPolygon checks if (px,py) lies inside a convex polygon.
func pointInPolygon(verts []Vec2, px, py float64) bool {
	hasNeg := false
	hasPos := false
	n := len(verts)
	for i := 0; i < n; i++ {
		a := verts[i]
		b := verts[(i+1)%n]
		d := (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
		if d < 0 {
			hasNeg = true
		}
		if d > 0 {
			hasPos = true
		}
	}
	return !(hasNeg && hasPos)
}

// segmentCircleIntersect checks if a line segment (x1,y1)-(x2,y2) intersects a circle at (cx,cy) with radius r.
func segmentCircleIntersect(x1, y1, x2, y2, cx, cy, r float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	fx := x1 - cx
	fy := y1 - cy
	a := dx*dx + dy*dy
	b := 2 * (fx*dx + fy*dy)
	c := fx*fx + fy*fy - r*r
	if a == 0 {
		return c <= 0
	}
	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return false
	}
	discriminant = math.Sqrt(discriminant)
	t1 := (-b - discriminant) / (2 * a)
	t2 := (-b + discriminant) / (2 * a)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// polyCircleOverlap checks a convex polygon against a circle: either the
// circle center is inside the polygon or the circle crosses an edge.
func polyCircleOverlap(verts []Vec2, cx, cy, r float64) bool {
	if pointInPolygon(verts, cx, cy) {
		return true
	}
	n := len(verts)
	for i := 0; i < n; i++ {
		a := verts[i]
		b := verts[(i+1)%n]
		if segmentCircleIntersect(a.X, a.Y, b.X, b.Y, cx, cy, r) {
			return true
		}
	}
	return false
}

// polysOverlap runs a separating-axis test between two convex polygons.
func polysOverlap(a, b []Vec2) bool {
	return !hasSeparatingAxis(a, b) && !hasSeparatingAxis(b, a)
}

func hasSeparatingAxis(a, b []Vec2) bool {
	n := len(a)
	for i := 0; i < n; i++ {
		p := a[i]
		q := a[(i+1)%n]
		// edge normal
		nx := -(q.Y - p.Y)
		ny := q.X - p.X

		minA, maxA := projectPoly(a, nx, ny)
		minB, maxB := projectPoly(b, nx, ny)
		if maxA < minB || maxB < minA {
			return true
		}
	}
	return false
}

func projectPoly(verts []Vec2, nx, ny float64) (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range verts {
		d := v.X*nx + v.Y*ny
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}
