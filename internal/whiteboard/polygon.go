package whiteboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/geometry"
)

// RegularPolygon renders a regular n-gon (n >= 3) inscribed against the
// drag rectangle (left, top, right, bottom) as an "M x y L x y ..." path,
// closing back to its starting vertex.
func RegularPolygon(n int, left, top, right, bottom float64) string {
	if n < 3 {
		n = 3
	}

	h := bottom - top
	var side float64
	if n%2 == 0 {
		side = h * math.Tan(math.Pi/float64(n))
	} else {
		side = h / (1/(2*math.Sin(math.Pi/float64(n))) + 1/(2*math.Tan(math.Pi/float64(n))))
	}

	x := (left+right)/2 - side/2
	y := bottom

	var b strings.Builder
	fmt.Fprintf(&b, "M %g %g", x, y)

	theta := 0.0
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		x += side * math.Cos(theta)
		y += side * math.Sin(theta)
		fmt.Fprintf(&b, " L %g %g", x, y)
		theta += step
	}

	return b.String()
}

// polygonFromDrag turns a pointer-down anchor and the current pointer
// position into the (left, top, right, bottom) rectangle RegularPolygon
// expects, treating the anchor's y as "top" and the live pointer's y as
// "bottom" regardless of which is numerically smaller, matching the
// shape tool's drag-to-draw behaviour.
func polygonFromDrag(n int, anchor, current geometry.Point) string {
	left, right := anchor.X, current.X
	if left > right {
		left, right = right, left
	}
	return RegularPolygon(n, left, anchor.Y, right, current.Y)
}
