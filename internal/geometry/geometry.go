// Package geometry provides the segment and rectangle intersection tests
// shared by the whiteboard eraser and selector tools.
package geometry

// Point is a 2D coordinate in drawing-area space.
type Point struct {
	X, Y float64
}

// SegmentsIntersect reports whether segment a1-a2 crosses segment b1-b2.
// Colinear or parallel segments (denom == 0) are treated as non-intersecting.
func SegmentsIntersect(a1, a2, b1, b2 Point) bool {
	denom := (b2.X-b1.X)*(a2.Y-a1.Y) - (b2.Y-b1.Y)*(a2.X-a1.X)
	if denom == 0 {
		return false
	}

	ua := ((b1.Y-a1.Y)*(b2.X-b1.X) - (b1.X-a1.X)*(b2.Y-b1.Y)) / denom
	ub := ((b1.Y-a1.Y)*(a2.X-a1.X) - (b1.X-a1.X)*(a2.Y-a1.Y)) / denom

	return ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1
}

// SegmentIntersectsRect reports whether segment l1-l2 crosses any of the four
// sides of the rectangle defined by r1 (top-left) and r2 (bottom-right).
func SegmentIntersectsRect(l1, l2, r1, r2 Point) bool {
	topLeft := Point{r1.X, r1.Y}
	topRight := Point{r2.X, r1.Y}
	bottomLeft := Point{r1.X, r2.Y}
	bottomRight := Point{r2.X, r2.Y}

	return SegmentsIntersect(l1, l2, topLeft, topRight) ||
		SegmentsIntersect(l1, l2, topRight, bottomRight) ||
		SegmentsIntersect(l1, l2, bottomRight, bottomLeft) ||
		SegmentsIntersect(l1, l2, bottomLeft, topLeft)
}

// PointInRect is an axis-aligned inclusive containment test. r1 is the
// top-left corner, r2 the bottom-right.
func PointInRect(p, r1, r2 Point) bool {
	minX, maxX := r1.X, r2.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := r1.Y, r2.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}
