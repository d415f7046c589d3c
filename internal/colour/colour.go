// Package colour assigns cursor colours from a fixed palette, the way the
// original MyLocalBoard clock/spaceManager pair assigns identity to a
// peer's contributions: a small fixed namespace, with a random fallback
// once it is exhausted.
package colour

import "math/rand"

// Local is the sentinel colour for the local peer's own cursor.
const Local = "black"

// Me is the sentinel username for the local peer's own cursor.
const Me = "Me"

// Palette is the fixed set of colours handed out to remote cursors, in
// assignment order.
var Palette = []string{
	"red",
	"green",
	"blue",
	"orange",
	"purple",
	"teal",
	"pink",
}

// Assign picks a colour for a newly-seen remote user, avoiding any colour
// already in use. If every palette entry is taken, it returns a uniformly
// random palette entry instead.
func Assign(inUse map[string]bool) string {
	for _, c := range Palette {
		if !inUse[c] {
			return c
		}
	}
	return Palette[rand.Intn(len(Palette))]
}
