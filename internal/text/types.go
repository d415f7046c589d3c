// Package text implements the client-side concurrency control engine for
// the collaborative text editor: a locally-optimistic replica, a
// server-confirmed shadow replica, and a pending-operation queue that gets
// rebased and replayed whenever a remote operation lands ahead of the
// local peer's own unacknowledged edits.
package text

import "github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/colour"

// Cursor is a participant's caret: a position plus the display identity
// used to render it.
type Cursor struct {
	Position int
	Username string
	Colour   string
}

// Range is a disjoint half-open interval [Start, End) of code-unit
// positions, the unit of a property's value.
type Range struct {
	Start, End int
}

// noFlag is the internal bucket key used for a flagless property's single
// range set. Socket payloads carry the flag as a separate nullable field;
// a non-nil empty flag string maps to this same key.
const noFlag = ""

// property holds one named styling directive's value. Flagged is fixed by
// whichever shape the first write used: flagless properties only
// ever populate the noFlag bucket, flagged properties use it only for an
// empty flag string.
type property struct {
	flagged bool
	buckets map[string][]Range
}

func newProperty(flagged bool) *property {
	return &property{flagged: flagged, buckets: make(map[string][]Range)}
}

func flagKey(flag *string) string {
	if flag == nil {
		return noFlag
	}
	return *flag
}

// Properties is the property table: name -> property.
type Properties map[string]*property

func newProperties() Properties {
	return make(Properties)
}

// clone deep-copies a property table so the live and shadow replicas never
// alias each other's range slices.
func (p Properties) clone() Properties {
	out := make(Properties, len(p))
	for name, prop := range p {
		np := newProperty(prop.flagged)
		for flag, ranges := range prop.buckets {
			np.buckets[flag] = append([]Range(nil), ranges...)
		}
		out[name] = np
	}
	return out
}

// replica bundles the three pieces of state that move together: content,
// cursors and properties. The engine keeps two of these (live and shadow)
// and rebuilds live from shadow whenever a remote op lands.
type replica struct {
	content    []rune
	cursors    map[int]*Cursor
	properties Properties
}

func newReplica() *replica {
	return &replica{
		content:    []rune{},
		cursors:    make(map[int]*Cursor),
		properties: newProperties(),
	}
}

func (r *replica) clone() *replica {
	out := &replica{
		content:    append([]rune(nil), r.content...),
		cursors:    make(map[int]*Cursor, len(r.cursors)),
		properties: r.properties.clone(),
	}
	for id, c := range r.cursors {
		cc := *c
		out.cursors[id] = &cc
	}
	return out
}

func (r *replica) String() string {
	return string(r.content)
}

// cursorFor returns (creating if necessary) the entry for the given
// user, seeding its username/colour the first time it is seen.
func (r *replica) cursorFor(userID int, isLocal bool, inUse map[string]bool) *Cursor {
	if c, ok := r.cursors[userID]; ok {
		return c
	}
	c := &Cursor{}
	if isLocal {
		c.Username = colour.Me
		c.Colour = colour.Local
	} else {
		c.Colour = colour.Assign(inUse)
	}
	r.cursors[userID] = c
	return c
}

func (r *replica) coloursInUse() map[string]bool {
	inUse := make(map[string]bool, len(r.cursors))
	for _, c := range r.cursors {
		inUse[c.Colour] = true
	}
	return inUse
}
